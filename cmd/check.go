package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"grimm.is/zonefw/internal/brand"
	"grimm.is/zonefw/internal/firewall"
	"grimm.is/zonefw/internal/i18n"
)

// RunCheck validates the configuration file syntax and semantics.
func RunCheck(ctx context.Context, o *Options, verbose bool) error {
	if len(o.ConfigFile) == 0 {
		return fmt.Errorf("usage: %s check [-v] <config-file>\nExample: %s check -v %s", brand.BinaryName, brand.BinaryName, brand.ConfigPath())
	}

	o.NoState = true
	e, err := setup(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	out := o.stdout()
	zones := e.manager.Compiler().Registry().Zones()
	Printer.Fprintf(out, i18n.MsgConfigValid)
	Printer.Fprintf(out, i18n.MsgZonesLoaded, len(zones), len(e.warnings))
	for _, w := range e.warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}

	if verbose {
		fmt.Fprintln(out)
		printSummary(out, zones)
	}
	return nil
}

func printSummary(out io.Writer, zones []*firewall.Zone) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintln(w, "ZONE\tFAMILY\tDEVICES\tSUBNETS\tINPUT\tOUTPUT\tFORWARD\tMASQ\tFLAGS")
	for _, z := range zones {
		devices := "-"
		if names := z.DeviceNames(); len(names) > 0 {
			devices = strings.Join(names, ",")
		}
		subnets := "-"
		if len(z.Subnets) > 0 {
			s := make([]string, len(z.Subnets))
			for i, a := range z.Subnets {
				s[i] = a.String()
			}
			subnets = strings.Join(s, ",")
		}
		masq := "no"
		if z.Masq {
			masq = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			z.Name, z.Family, devices, subnets,
			z.PolicyInput, z.PolicyOutput, z.PolicyForward, masq, z.Flags)
	}
	w.Flush()
}
