package firewall

import (
	"fmt"
	"net/netip"
	"strings"
)

// Device is an interface match. Any matches every interface and produces
// no match argument.
type Device struct {
	Name   string
	Invert bool
	Any    bool
}

func (d Device) String() string {
	if d.Any {
		return "*"
	}
	if d.Invert {
		return "!" + d.Name
	}
	return d.Name
}

func (d Device) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Address is a subnet or an address range, tagged with its family.
type Address struct {
	Family Family
	Prefix netip.Prefix
	// End is set for ranges; Prefix then holds the first address.
	End    netip.Addr
	Invert bool
}

// IsRange reports whether the address is a start-end range.
func (a Address) IsRange() bool {
	return a.End.IsValid()
}

func (a Address) String() string {
	var s string
	if a.IsRange() {
		s = a.Prefix.Addr().String() + "-" + a.End.String()
	} else {
		s = a.Prefix.String()
	}
	if a.Invert {
		return "!" + s
	}
	return s
}

func (a Address) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// LimitUnit is the time base of a rate limit.
type LimitUnit uint8

const (
	UnitSecond LimitUnit = iota
	UnitMinute
	UnitHour
	UnitDay
)

var limitUnits = [...]string{"second", "minute", "hour", "day"}

func (u LimitUnit) String() string {
	return limitUnits[u]
}

// Limit is a packet rate limit such as 10/minute.
type Limit struct {
	Rate   uint
	Unit   LimitUnit
	Invert bool
	// Burst is the initial packet allowance; zero leaves the iptables default.
	Burst uint
}

func (l Limit) String() string {
	s := fmt.Sprintf("%d/%s", l.Rate, l.Unit)
	if l.Invert {
		return "!" + s
	}
	return s
}

func (l Limit) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

// Zone is one configured firewall zone.
type Zone struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Family  Family `yaml:"family"`

	Networks []Device  `yaml:"networks,omitempty"`
	Devices  []Device  `yaml:"devices,omitempty"`
	Subnets  []Address `yaml:"subnets,omitempty"`

	PolicyInput   Target `yaml:"input"`
	PolicyForward Target `yaml:"forward"`
	PolicyOutput  Target `yaml:"output"`

	Conntrack bool      `yaml:"conntrack"`
	Masq      bool      `yaml:"masq"`
	MasqSrc   []Address `yaml:"masq_src,omitempty"`
	MasqDest  []Address `yaml:"masq_dest,omitempty"`
	MTUFix    bool      `yaml:"mtu_fix"`

	CustomChains bool  `yaml:"custom_chains"`
	Log          bool  `yaml:"log"`
	LogLimit     Limit `yaml:"log_limit"`

	ExtraSrc  string `yaml:"extra_src,omitempty"`
	ExtraDest string `yaml:"extra_dest,omitempty"`

	// Flags are the targets the configured zone needs chains for.
	Flags TargetSet `yaml:"flags"`
	// Families are the families chains were emitted for.
	Families FamilySet `yaml:"families"`

	// RunningFlags are the targets materialised by the last applied document.
	RunningFlags TargetSet `yaml:"running_flags"`
	// Running records which {table, family} pairs currently hold chains.
	Running Materialized `yaml:"running"`

	// emitted collects the targets declared since the last commit.
	emitted TargetSet
	// stale are the families still holding chains built from RunningFlags.
	stale FamilySet
}

// NewZone allocates a zone with its documented defaults.
func NewZone() *Zone {
	return &Zone{
		Enabled:      true,
		CustomChains: true,
		LogLimit:     Limit{Rate: 10},
	}
}

// HasSelectors reports whether the zone can match any traffic at all.
func (z *Zone) HasSelectors() bool {
	return len(z.Networks) > 0 || len(z.Devices) > 0 || len(z.Subnets) > 0 || z.ExtraSrc != ""
}

// DeviceNames returns the resolved device names.
func (z *Zone) DeviceNames() []string {
	names := make([]string, 0, len(z.Devices))
	for _, d := range z.Devices {
		names = append(names, d.String())
	}
	return names
}

func (z *Zone) String() string {
	return fmt.Sprintf("zone %s [%s] devices=%s", z.Name, z.Family, strings.Join(z.DeviceNames(), ","))
}
