package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"grimm.is/zonefw/internal/brand"
	"grimm.is/zonefw/internal/config"
	"grimm.is/zonefw/internal/firewall"
	"grimm.is/zonefw/internal/i18n"
	"grimm.is/zonefw/internal/logging"
	"grimm.is/zonefw/internal/metrics"
	"grimm.is/zonefw/internal/network"
	"grimm.is/zonefw/internal/state"
)

// Printer is the localised printer for command output.
var Printer = i18n.NewCLIPrinter()

// Options are the flags shared by the subcommands.
type Options struct {
	ConfigFile  string
	StatePath   string
	MetricsFile string
	LogLevel    string
	Syslog      string
	JSON        bool
	DryRun      bool
	// NoState skips the state store, e.g. for commands that only compile.
	NoState bool

	// Stdout receives command output; nil means os.Stdout.
	Stdout io.Writer
	// Runner overrides the command runner used to apply documents.
	Runner firewall.CommandRunner
	// Resolver overrides network-to-device resolution.
	Resolver firewall.DeviceResolver
}

// Register binds the shared flags to fs.
func (o *Options) Register(fs *flag.FlagSet, withApply bool) {
	fs.StringVar(&o.ConfigFile, "config", brand.ConfigPath(), "Configuration file")
	fs.StringVar(&o.ConfigFile, "c", brand.ConfigPath(), "Configuration file (short)")
	fs.StringVar(&o.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&o.JSON, "json", false, "Log in JSON")
	fs.StringVar(&o.Syslog, "syslog", "", "Also send logs to a remote syslog server (host[:port])")
	if !withApply {
		return
	}
	fs.StringVar(&o.StatePath, "state", brand.StatePath(), "State database")
	fs.StringVar(&o.MetricsFile, "metrics-file", "", "Write metrics to a node_exporter textfile")
	fs.BoolVar(&o.DryRun, "dry-run", false, "Dry run - print documents without applying")
	fs.BoolVar(&o.DryRun, "n", false, "Dry run (short)")
}

func (o *Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// env is everything a command needs to compile and apply zones.
type env struct {
	opts     *Options
	logger   *logging.Logger
	config   *config.Config
	defaults firewall.Defaults
	resolver firewall.DeviceResolver
	warnings []string
	manager  *firewall.Manager
	store    *state.SQLiteStore
	metrics  *metrics.Registry
	closers  []func() error
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func newLogger(o *Options) (*logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.JSON = o.JSON
	closer := func() error { return nil }

	if o.Syslog != "" {
		sc := logging.DefaultSyslogConfig()
		sc.Enabled = true
		sc.Host = o.Syslog
		if host, port, err := net.SplitHostPort(o.Syslog); err == nil {
			sc.Host = host
			if sc.Port, err = strconv.Atoi(port); err != nil {
				return nil, nil, fmt.Errorf("invalid syslog port %q", port)
			}
		}
		w, err := logging.NewSyslogWriter(sc)
		if err != nil {
			return nil, nil, err
		}
		cfg.Output = io.MultiWriter(os.Stderr, w)
		closer = w.Close
	}

	logger := logging.New(cfg)
	logging.SetDefault(logger)
	return logger, closer, nil
}

// setup loads the configuration, validates the zones and builds the
// manager. Load warnings are logged and kept on the env.
func setup(ctx context.Context, o *Options) (*env, error) {
	logger, closeLog, err := newLogger(o)
	if err != nil {
		return nil, err
	}
	e := &env{opts: o, logger: logger, metrics: metrics.Get()}
	e.closers = append(e.closers, closeLog)

	result, err := config.LoadFile(o.ConfigFile)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	e.config = result.Config
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	e.warnings = append(e.warnings, result.Warnings...)

	defs, dw := firewall.FromGlobalConfig(result.Config)
	resolver := o.Resolver
	if resolver == nil {
		resolver = network.ChainResolver{
			network.StaticResolver(result.Config.NetworkMap()),
			network.NewLinkResolver(nil),
		}
	}
	e.defaults, e.resolver = defs, resolver
	reg, zw := firewall.LoadZones(ctx, result.Config.Zones, defs, resolver, logger)
	for _, w := range append(dw, zw...) {
		e.warnings = append(e.warnings, w.String())
	}
	e.metrics.LoadWarnings.Add(float64(len(e.warnings)))

	mopts := firewall.ManagerOptions{
		Runner:  o.Runner,
		Metrics: e.metrics,
		Logger:  logger,
		DryRun:  o.DryRun,
	}
	if !o.NoState {
		if err := os.MkdirAll(filepath.Dir(o.StatePath), 0o750); err != nil {
			e.Close()
			return nil, fmt.Errorf("create state directory: %w", err)
		}
		lock, err := state.AcquireLock(ctx, o.StatePath+".lock")
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, lock.Release)

		store, err := state.NewSQLiteStore(state.DefaultOptions(o.StatePath))
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("open state: %w", err)
		}
		e.store = store
		e.closers = append(e.closers, store.Close)
		mopts.Store = store
	}

	e.manager = firewall.NewManager(firewall.NewCompiler(defs, reg, logger), mopts)
	if err := e.manager.RestoreState(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// freshCompiler compiles the configuration again, ignoring any running
// state restored into the manager's registry.
func (e *env) freshCompiler(ctx context.Context) *firewall.Compiler {
	reg, _ := firewall.LoadZones(ctx, e.config.Zones, e.defaults, e.resolver, e.logger)
	return firewall.NewCompiler(e.defaults, reg, e.logger)
}

// report prints the outcome of an operation and, in dry-run mode, the
// documents themselves.
func (e *env) report(results []firewall.Result) {
	out := e.opts.stdout()
	for _, r := range results {
		switch {
		case r.Skipped:
			Printer.Fprintf(out, i18n.MsgDocSkipped, r.Family, r.Operation)
		case e.opts.DryRun:
			fmt.Fprintf(out, "# %s %s\n%s", r.Family, r.Operation, r.Document)
		default:
			Printer.Fprintf(out, i18n.MsgDocApplied, r.Family, r.Operation, r.Counts.Chains, r.Counts.Rules, r.Counts.Deletes)
		}
	}
}

func (e *env) writeMetrics() {
	if e.opts.MetricsFile == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.opts.MetricsFile); err != nil {
		e.logger.Warn("failed to write metrics", "file", e.opts.MetricsFile, "error", err)
	}
}

type operation func(ctx context.Context, m *firewall.Manager) ([]firewall.Result, error)

func run(ctx context.Context, o *Options, op operation) error {
	e, err := setup(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	results, err := op(ctx, e.manager)
	e.report(results)
	e.writeMetrics()
	return err
}

// RunStart brings every configured zone up.
func RunStart(ctx context.Context, o *Options) error {
	return run(ctx, o, func(ctx context.Context, m *firewall.Manager) ([]firewall.Result, error) {
		return m.Start(ctx)
	})
}

// RunStop tears every running zone down, including custom chains and the
// base chain hooks.
func RunStop(ctx context.Context, o *Options) error {
	return run(ctx, o, func(ctx context.Context, m *firewall.Manager) ([]firewall.Result, error) {
		return m.Stop(ctx, false)
	})
}

// RunReload replaces the running zones with the configured ones, keeping
// custom chains.
func RunReload(ctx context.Context, o *Options) error {
	return run(ctx, o, func(ctx context.Context, m *firewall.Manager) ([]firewall.Result, error) {
		return m.Reload(ctx)
	})
}

// ErrDiffers is returned by commands that found a difference.
var ErrDiffers = errors.New("configuration differs")
