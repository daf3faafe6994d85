package firewall

// PrintZoneChains declares the chains of every configured zone for one
// table of the builder's family.
func (c *Compiler) PrintZoneChains(b *RestoreBuilder, table Table) {
	for _, z := range c.registry.Zones() {
		c.printZoneChain(b, table, z)
	}
}

func (c *Compiler) printZoneChain(b *RestoreBuilder, table Table, z *Zone) {
	family := b.Family()
	if !z.Family.Matches(family) {
		return
	}

	z.Families.Add(family)

	// Custom chains materialised by an earlier run are left alone.
	var exclude TargetSet
	custom := CustomChainsFor(family)
	if z.RunningFlags.Has(custom) {
		exclude.Add(custom)
	}

	if z.CustomChains {
		z.Flags.Add(custom)
	}
	if !z.Conntrack && !c.defaults.DropInvalid {
		z.Flags.Add(TargetNoTrack)
	}

	before := b.Len()
	for _, name := range chainNames(table, family, z.Name, z.Flags, srcChains) {
		b.DeclareChain(name)
	}
	for _, name := range chainNames(table, family, z.Name, z.Flags.Without(exclude), destChains) {
		b.DeclareChain(name)
	}
	for _, j := range customJumps {
		if j.applies(table, family, z.Flags) {
			b.AddRule(j.chain(z.Name), j.args(z.Name)...)
		}
	}

	if b.Len() > before {
		c.logger.Debug("zone chains", "zone", z.Name, "table", table.String(), "family", family.String())
		c.registry.promote(z, table, family)
	}
}
