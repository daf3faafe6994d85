package firewall

import (
	"fmt"
	"time"

	"grimm.is/zonefw/internal/config"
)

// DefaultResolveTimeout bounds a single network-to-device lookup.
const DefaultResolveTimeout = 2 * time.Second

// Defaults are the process-wide settings zone loading and emission fall
// back to. They are passed by value and never mutated after construction.
type Defaults struct {
	PolicyInput   Target
	PolicyOutput  Target
	PolicyForward Target

	// CustomChains permits zones to create custom chains at all.
	CustomChains bool
	// DropInvalid drops invalid-state traffic globally, which also
	// suppresses per-zone notrack rules.
	DropInvalid bool
	DisableIPv6 bool

	ResolveTimeout time.Duration
}

// StandardDefaults returns the defaults used when no defaults block exists.
func StandardDefaults() Defaults {
	return Defaults{
		PolicyInput:    TargetAccept,
		PolicyOutput:   TargetAccept,
		PolicyForward:  TargetReject,
		CustomChains:   true,
		ResolveTimeout: DefaultResolveTimeout,
	}
}

// ManagedFamilies returns the families the compiler emits documents for.
func (d Defaults) ManagedFamilies() []Family {
	if d.DisableIPv6 {
		return []Family{FamilyV4}
	}
	return Families
}

// FromGlobalConfig extracts the firewall defaults from the global config.
// Malformed values keep the standard default and produce a warning.
func FromGlobalConfig(g *config.Config) (Defaults, []Warning) {
	d := StandardDefaults()
	if g == nil || g.Defaults == nil {
		return d, nil
	}

	var warnings []Warning
	c := g.Defaults
	warn := func(format string, args ...any) {
		warnings = append(warnings, Warning{Element: "defaults (" + c.Pos + ")", Message: fmt.Sprintf(format, args...)})
	}

	policy := func(dst *Target, val, name string) {
		if val == "" {
			return
		}
		t, err := ParseTarget(val)
		if err != nil || !t.IsPolicy() {
			warn("has invalid %s policy '%s', using %s", name, val, *dst)
			return
		}
		*dst = t
	}
	policy(&d.PolicyInput, c.Input, "input")
	policy(&d.PolicyOutput, c.Output, "output")
	policy(&d.PolicyForward, c.Forward, "forward")

	if c.CustomChains != nil {
		d.CustomChains = *c.CustomChains
	}
	d.DropInvalid = c.DropInvalid
	d.DisableIPv6 = c.DisableIPv6

	if c.ResolveTimeout != "" {
		timeout, err := time.ParseDuration(c.ResolveTimeout)
		if err != nil || timeout <= 0 {
			warn("has invalid resolve_timeout '%s', using %s", c.ResolveTimeout, d.ResolveTimeout)
		} else {
			d.ResolveTimeout = timeout
		}
	}

	return d, warnings
}
