package firewall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grimm.is/zonefw/internal/config"
	"grimm.is/zonefw/internal/logging"
	"grimm.is/zonefw/internal/validation"
)

// DeviceResolver maps a logical network name to the device carrying it.
type DeviceResolver interface {
	ResolveDevice(ctx context.Context, network string) (string, error)
}

var errNoResolver = errors.New("no device resolver")

// LoadZones validates every zone section and returns the configured
// registry. Problems never abort the load; they are logged and returned as
// warnings.
func LoadZones(ctx context.Context, sections []config.ZoneSection, defs Defaults, resolver DeviceResolver, logger *logging.Logger) (*Registry, []Warning) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("zones")

	reg := NewRegistry()
	var warnings []Warning

	for _, section := range sections {
		z, ws := loadZone(ctx, section, defs, resolver)
		if z != nil && reg.lookupConfigured(z.Name) != nil {
			ws = append(ws, Warning{zoneElement(z.Name, section), "is a duplicate of an earlier zone - ignoring"})
			z = nil
		}
		for _, w := range ws {
			logger.Warn(w.Message, "element", w.Element, "pos", section.Pos())
		}
		warnings = append(warnings, ws...)

		if z != nil {
			reg.Add(z)
			logger.Debug("zone loaded", "zone", z.Name, "flags", z.Flags.String())
		}
	}

	return reg, warnings
}

func zoneElement(name string, section config.ZoneSection) string {
	if name == "" {
		return "zone (" + section.Pos() + ")"
	}
	return "zone '" + name + "'"
}

// loadZone builds and validates one zone. It returns nil when the section
// is disabled or invalid.
func loadZone(ctx context.Context, section config.ZoneSection, defs Defaults, resolver DeviceResolver) (*Zone, []Warning) {
	z := NewZone()
	warnings := applyOptions(z, section)

	if !z.Enabled {
		return nil, warnings
	}

	if z.ExtraDest == "" {
		z.ExtraDest = z.ExtraSrc
	}

	if !defs.CustomChains && z.CustomChains {
		z.CustomChains = false
	}

	element := zoneElement(z.Name, section)
	warn := func(format string, args ...any) {
		warnings = append(warnings, Warning{element, fmt.Sprintf(format, args...)})
	}

	if z.Name == "" {
		warn("has no name - ignoring")
		return nil, warnings
	}
	if err := validation.ValidateZoneName(z.Name); err != nil {
		warn("has an invalid name (%v) - ignoring", err)
		return nil, warnings
	}

	if !z.HasSelectors() {
		warn("has no device, network, subnet or extra options")
	}

	checkPolicy(&z.PolicyInput, defs.PolicyInput, "input", warn)
	checkPolicy(&z.PolicyOutput, defs.PolicyOutput, "output", warn)
	checkPolicy(&z.PolicyForward, defs.PolicyForward, "forward", warn)

	for _, n := range z.Networks {
		dev, err := resolveNetwork(ctx, resolver, n.Name, defs.ResolveTimeout)
		if err != nil {
			warn("cannot resolve device of network '%s'", n.Name)
			continue
		}
		z.Devices = append(z.Devices, Device{Name: dev, Invert: n.Invert})
	}

	deriveFlags(z)
	return z, warnings
}

func checkPolicy(policy *Target, def Target, name string, warn func(string, ...any)) {
	switch {
	case *policy == TargetUnspec:
		warn("has no %s policy specified, using default", name)
		*policy = def
	case !policy.IsPolicy():
		warn("has invalid %s policy, using default", name)
		*policy = def
	}
}

func resolveNetwork(ctx context.Context, resolver DeviceResolver, name string, timeout time.Duration) (string, error) {
	if resolver == nil {
		return "", errNoResolver
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return resolver.ResolveDevice(ctx, name)
}

// deriveFlags records the targets a validated zone needs chains for. The
// source-side target follows the input policy only.
func deriveFlags(z *Zone) {
	if z.Masq {
		z.Flags.Add(TargetSNAT)
		z.Conntrack = true
	}
	if z.CustomChains {
		z.Flags.Add(TargetSNAT)
		z.Flags.Add(TargetDNAT)
	}
	z.Flags.Add(ToSrc(z.PolicyInput))
	z.Flags.Add(z.PolicyOutput)
	z.Flags.Add(z.PolicyForward)
}
