package firewall

// FlushZones tears down the chains of running zones for one table of the
// builder's family. The first pass (deletePass false) flushes rule bodies;
// the second deletes the chains and retires the zone from the running
// registry once nothing of it remains. A selective reload keeps the
// custom chains of zones that the following start brings back in this
// family; everything else is removed.
func (c *Compiler) FlushZones(b *RestoreBuilder, table Table, deletePass, reload bool) {
	family := b.Family()

	op := b.FlushChain
	if deletePass {
		op = b.DeleteChain
	}

	// Demotion edits the running slice, so iterate over a copy.
	running := append([]*Zone(nil), c.registry.Running()...)
	for _, z := range running {
		if !z.Running.Has(table, family) {
			continue
		}

		keepCustom := reload && c.keepsCustomChains(z, family)
		var exclude TargetSet
		if keepCustom {
			exclude = customMarkers
		}

		for _, name := range chainNames(table, family, z.Name, z.RunningFlags, srcChains) {
			op(name)
		}
		for _, name := range chainNames(table, family, z.Name, z.RunningFlags.Without(exclude), destChains) {
			op(name)
		}

		if !deletePass {
			continue
		}

		z.Running.Remove(table, family)
		if !z.Running.Families().Has(family) {
			z.Families.Remove(family)
			z.stale.Remove(family)
			if !keepCustom {
				z.RunningFlags.Remove(CustomChainsFor(family))
			}
		}
		if z.Running.Empty() {
			c.logger.Debug("zone stopped", "zone", z.Name)
			c.registry.demote(z)
		}
	}
}

// keepsCustomChains reports whether a start will link z's custom chains of
// family again.
func (c *Compiler) keepsCustomChains(z *Zone, family Family) bool {
	return c.registry.lookupConfigured(z.Name) == z && z.CustomChains && z.Family.Matches(family)
}
