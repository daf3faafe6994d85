package firewall

import (
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"grimm.is/zonefw/internal/config"
)

// Warning is a non-fatal problem found while loading configuration.
type Warning struct {
	// Element identifies the configuration element, e.g. "zone 'lan'".
	Element string
	Message string
}

func (w Warning) String() string {
	return w.Element + " " + w.Message
}

// optionSetter assigns a config value to a zone field. It returns the
// textual values it rejected; accepted list elements are still applied.
type optionSetter func(z *Zone, v cty.Value) (rejected []string)

func boolOption(field func(*Zone) *bool) optionSetter {
	return func(z *Zone, v cty.Value) []string {
		b, err := config.AsBool(v)
		if err != nil {
			return []string{config.Describe(v)}
		}
		*field(z) = b
		return nil
	}
}

func stringOption(fields ...func(*Zone) *string) optionSetter {
	return func(z *Zone, v cty.Value) []string {
		s, err := config.AsString(v)
		if err != nil {
			return []string{config.Describe(v)}
		}
		for _, f := range fields {
			*f(z) = s
		}
		return nil
	}
}

func familyOption(z *Zone, v cty.Value) []string {
	s, err := config.AsString(v)
	if err == nil {
		var f Family
		if f, err = ParseFamily(s); err == nil {
			z.Family = f
			return nil
		}
	}
	return []string{config.Describe(v)}
}

func targetOption(field func(*Zone) *Target) optionSetter {
	return func(z *Zone, v cty.Value) []string {
		s, err := config.AsString(v)
		if err == nil {
			var t Target
			if t, err = ParseTarget(s); err == nil {
				*field(z) = t
				return nil
			}
		}
		return []string{config.Describe(v)}
	}
}

// listOption parses each element of a list value and appends the accepted
// ones.
func listOption[T any](parse func(string) (T, error), field func(*Zone) *[]T) optionSetter {
	return func(z *Zone, v cty.Value) []string {
		items, err := config.AsStringList(v)
		if err != nil {
			return []string{config.Describe(v)}
		}
		var rejected []string
		for _, item := range items {
			parsed, err := parse(item)
			if err != nil {
				rejected = append(rejected, item)
				continue
			}
			*field(z) = append(*field(z), parsed)
		}
		return rejected
	}
}

func limitOption(z *Zone, v cty.Value) []string {
	s, err := config.AsString(v)
	if err == nil {
		var l Limit
		if l, err = ParseLimit(s); err == nil {
			l.Burst = z.LogLimit.Burst
			z.LogLimit = l
			return nil
		}
	}
	return []string{config.Describe(v)}
}

func limitBurstOption(z *Zone, v cty.Value) []string {
	s, err := config.AsString(v)
	if err == nil {
		var n uint64
		if n, err = strconv.ParseUint(s, 10, 32); err == nil && n > 0 {
			z.LogLimit.Burst = uint(n)
			return nil
		}
	}
	return []string{config.Describe(v)}
}

// zoneOptions is the option table of a zone section.
var zoneOptions = map[string]optionSetter{
	"enabled": boolOption(func(z *Zone) *bool { return &z.Enabled }),
	"name":    stringOption(func(z *Zone) *string { return &z.Name }),
	"family":  familyOption,

	"network": listOption(ParseDevice, func(z *Zone) *[]Device { return &z.Networks }),
	"device":  listOption(ParseInterface, func(z *Zone) *[]Device { return &z.Devices }),
	"subnet":  listOption(ParseAddress, func(z *Zone) *[]Address { return &z.Subnets }),

	"input":   targetOption(func(z *Zone) *Target { return &z.PolicyInput }),
	"forward": targetOption(func(z *Zone) *Target { return &z.PolicyForward }),
	"output":  targetOption(func(z *Zone) *Target { return &z.PolicyOutput }),

	"masq":      boolOption(func(z *Zone) *bool { return &z.Masq }),
	"masq_src":  listOption(ParseAddress, func(z *Zone) *[]Address { return &z.MasqSrc }),
	"masq_dest": listOption(ParseAddress, func(z *Zone) *[]Address { return &z.MasqDest }),

	"extra":      stringOption(func(z *Zone) *string { return &z.ExtraSrc }),
	"extra_src":  stringOption(func(z *Zone) *string { return &z.ExtraSrc }),
	"extra_dest": stringOption(func(z *Zone) *string { return &z.ExtraDest }),

	"conntrack":     boolOption(func(z *Zone) *bool { return &z.Conntrack }),
	"mtu_fix":       boolOption(func(z *Zone) *bool { return &z.MTUFix }),
	"custom_chains": boolOption(func(z *Zone) *bool { return &z.CustomChains }),
	"log":           boolOption(func(z *Zone) *bool { return &z.Log }),
	"log_limit":     limitOption,

	"log_limit_burst": limitBurstOption,
}

// applyOptions fills z from a zone section. Unknown options and malformed
// values produce warnings and leave the field untouched.
func applyOptions(z *Zone, section config.ZoneSection) []Warning {
	var warnings []Warning
	element := "zone (" + section.Pos() + ")"

	for _, o := range section.Options {
		set, ok := zoneOptions[o.Name]
		if !ok {
			warnings = append(warnings, Warning{element, fmt.Sprintf("uses unknown option '%s'", o.Name)})
			continue
		}
		for _, bad := range set(z, o.Value) {
			warnings = append(warnings, Warning{element, fmt.Sprintf("has invalid value '%s' for option '%s'", bad, o.Name)})
		}
	}
	return warnings
}
