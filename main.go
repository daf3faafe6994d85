package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/zonefw/cmd"
	"grimm.is/zonefw/internal/brand"
	"grimm.is/zonefw/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &cmd.Options{}

	switch os.Args[1] {
	case "start", "stop", "reload":
		fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
		opts.Register(fs, true)
		fs.Parse(os.Args[2:])

		run := map[string]func(context.Context, *cmd.Options) error{
			"start":  cmd.RunStart,
			"stop":   cmd.RunStop,
			"reload": cmd.RunReload,
		}[os.Args[1]]
		if err := run(ctx, opts); err != nil {
			printer.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
			os.Exit(1)
		}

	case "check":
		fs := flag.NewFlagSet("check", flag.ExitOnError)
		opts.Register(fs, false)
		verbose := fs.Bool("verbose", false, "Verbose output")
		fs.BoolVar(verbose, "v", false, "Verbose output (short)")
		fs.Parse(os.Args[2:])

		if len(fs.Args()) > 0 {
			opts.ConfigFile = fs.Arg(0)
		}
		if err := cmd.RunCheck(ctx, opts, *verbose); err != nil {
			printer.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "print":
		fs := flag.NewFlagSet("print", flag.ExitOnError)
		opts.Register(fs, false)
		fs.Parse(os.Args[2:])

		if err := cmd.RunPrint(ctx, opts); err != nil {
			printer.Fprintf(os.Stderr, "Print failed: %v\n", err)
			os.Exit(1)
		}

	case "diff":
		fs := flag.NewFlagSet("diff", flag.ExitOnError)
		opts.Register(fs, true)
		live := fs.Bool("live", false, "Compare against the live ruleset instead of the last applied document")
		fs.Parse(os.Args[2:])

		if err := cmd.RunDiff(ctx, opts, *live); err != nil {
			if errors.Is(err, cmd.ErrDiffers) {
				os.Exit(2)
			}
			printer.Fprintf(os.Stderr, "Diff failed: %v\n", err)
			os.Exit(1)
		}

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		opts.Register(fs, true)
		history := fs.Int("history", 10, "Number of recent applies to list (0 to omit)")
		fs.Parse(os.Args[2:])

		if err := cmd.RunShow(ctx, opts, *history); err != nil {
			printer.Fprintf(os.Stderr, "Show failed: %v\n", err)
			os.Exit(1)
		}

	case "fmt":
		fs := flag.NewFlagSet("fmt", flag.ExitOnError)
		fs.StringVar(&opts.ConfigFile, "config", brand.ConfigPath(), "Configuration file")
		fs.StringVar(&opts.ConfigFile, "c", brand.ConfigPath(), "Configuration file (short)")
		write := fs.Bool("w", false, "Write result to the file instead of stdout")
		fs.Parse(os.Args[2:])

		if len(fs.Args()) > 0 {
			opts.ConfigFile = fs.Arg(0)
		}
		if err := cmd.RunFmt(opts, *write); err != nil {
			printer.Fprintf(os.Stderr, "Format failed: %v\n", err)
			os.Exit(1)
		}

	case "version", "-v", "--version":
		cmd.RunVersion(opts)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Core Commands:
  start     Build and apply the zone rules for every managed family
            Options: --dry-run (-n), --config (-c) <file>, --state <file>
  stop      Remove all running zones, custom chains and base chain hooks
  reload    Replace the running zones with the configured ones
            Custom user chains are kept

Utility Commands:
  check     Validate configuration file
            Options: --verbose (-v)
  print     Print the start documents without applying them
  diff      Compare generated rules against the last applied document
            Options: --live (compare against iptables-save)
  show      Show configured zones, running state and apply history as YAML
            Options: --history <n>
  fmt       Rewrite the configuration in canonical HCL formatting
            Options: -w (write in place)
  version   Print version information

Common Options:
  --log-level <level>   debug, info, warn or error
  --json                Log in JSON
  --syslog <host:port>  Also send logs to a remote syslog server
  --metrics-file <file> Write metrics for the node_exporter textfile collector

Examples:
  %s check -v %s
  %s start --dry-run
  %s reload
  %s diff --live
`,
		brand.Name, brand.Description,
		brand.LowerName,
		brand.LowerName, brand.ConfigPath(),
		brand.LowerName, brand.LowerName, brand.LowerName)
}
