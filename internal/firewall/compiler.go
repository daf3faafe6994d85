package firewall

import (
	"grimm.is/zonefw/internal/logging"
)

// Compiler turns a zone registry into iptables-restore documents. It is
// not safe for concurrent use; emission mutates the registry's running
// state.
type Compiler struct {
	defaults  Defaults
	registry  *Registry
	installed FamilySet
	logger    *logging.Logger
}

// NewCompiler creates a compiler over reg. A nil logger uses the default.
func NewCompiler(defs Defaults, reg *Registry, logger *logging.Logger) *Compiler {
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Compiler{
		defaults: defs,
		registry: reg,
		logger:   logger.WithComponent("compiler"),
	}
}

// Registry returns the zone registry the compiler works on.
func (c *Compiler) Registry() *Registry {
	return c.registry
}

// Defaults returns the compiler's defaults.
func (c *Compiler) Defaults() Defaults {
	return c.defaults
}

// Installed returns the families whose base chains are hooked in.
func (c *Compiler) Installed() FamilySet {
	return c.installed
}

// SetInstalled restores the installed families, e.g. from persisted state.
func (c *Compiler) SetInstalled(s FamilySet) {
	c.installed = s
}

// Start builds the document that brings every configured zone up for a
// family.
func (c *Compiler) Start(family Family) *RestoreBuilder {
	b := NewRestoreBuilder(family)
	install := !c.installed.Has(family)

	for _, table := range TablesFor(family) {
		b.BeginTable(table)
		c.printBaseChains(b, table, install)
		c.PrintZoneChains(b, table)
		c.printBaseHead(b, table)
		c.PrintZoneRules(b, table)
		c.printBaseTail(b, table)
		b.Commit()
	}

	c.installed.Add(family)
	c.logger.Info("start document built", "family", family.String(),
		"zones", len(c.registry.Zones()), "lines", b.Len())
	return b
}

// Stop builds the document tearing running zones down for a family. With
// reload set, base chains stay hooked in and custom chains are preserved
// so a following Start can repopulate them. Stop returns an empty document
// when the family was never installed.
func (c *Compiler) Stop(family Family, reload bool) *RestoreBuilder {
	b := NewRestoreBuilder(family)
	if !c.installed.Has(family) {
		c.logger.Debug("stop skipped, family not installed", "family", family.String())
		return b
	}

	for _, table := range TablesFor(family) {
		b.BeginTable(table)
		if !reload {
			resetBuiltinPolicies(b, table)
		}
		c.flushBaseChains(b, table)
		c.FlushZones(b, table, false, reload)
		c.FlushZones(b, table, true, reload)
		if !reload {
			c.removeBaseChains(b, table)
		}
		b.Commit()
	}

	if !reload {
		c.installed.Remove(family)
	}
	c.logger.Info("stop document built", "family", family.String(),
		"reload", reload, "running", len(c.registry.Running()), "lines", b.Len())
	return b
}
