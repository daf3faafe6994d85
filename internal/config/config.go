package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Config is a parsed zonefw configuration file.
type Config struct {
	// Defaults is nil when the file has no defaults block.
	Defaults *Defaults
	Networks []Network
	// Zones are kept raw, in file order, for the firewall option layer.
	Zones []ZoneSection
}

// Defaults holds the process-wide firewall settings.
type Defaults struct {
	Input   string `hcl:"input,optional"`
	Output  string `hcl:"output,optional"`
	Forward string `hcl:"forward,optional"`

	CustomChains   *bool  `hcl:"custom_chains,optional"`
	DropInvalid    bool   `hcl:"drop_invalid,optional"`
	DisableIPv6    bool   `hcl:"disable_ipv6,optional"`
	ResolveTimeout string `hcl:"resolve_timeout,optional"`

	// Pos is the file:line of the block, for warnings.
	Pos string
}

// Network maps a logical network name to a device.
type Network struct {
	Name   string `hcl:"name,label"`
	Device string `hcl:"device"`
}

// NetworkDevice returns the device configured for a logical network.
func (c *Config) NetworkDevice(name string) (string, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n.Device, true
		}
	}
	return "", false
}

// NetworkMap returns the configured networks keyed by name.
func (c *Config) NetworkMap() map[string]string {
	m := make(map[string]string, len(c.Networks))
	for _, n := range c.Networks {
		m[n.Name] = n.Device
	}
	return m
}

// ZoneSection is one zone block with its attributes in source order.
type ZoneSection struct {
	Range   hcl.Range
	Options []Option
}

// Pos returns the file:line of the section.
func (s ZoneSection) Pos() string {
	return pos(s.Range)
}

// Option returns the named option, if set.
func (s ZoneSection) Option(name string) (Option, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Option is a single attribute of a section.
type Option struct {
	Name  string
	Value cty.Value
	Range hcl.Range
}

func pos(r hcl.Range) string {
	return fmt.Sprintf("%s:%d", r.Filename, r.Start.Line)
}
