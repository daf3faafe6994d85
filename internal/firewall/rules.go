package firewall

// PrintZoneRules emits the rule bodies of every configured zone for one
// table of the builder's family.
func (c *Compiler) PrintZoneRules(b *RestoreBuilder, table Table) {
	for _, z := range c.registry.Zones() {
		c.printZoneRule(b, table, z)
	}
}

func (c *Compiler) printZoneRule(b *RestoreBuilder, table Table, z *Zone) {
	family := b.Family()
	if !z.Family.Matches(family) {
		return
	}

	switch table {
	case TableFilter:
		b.AddRule(zoneChain("input")(z.Name), jump(policyChain(z.Name, "src", z.PolicyInput))...)
		b.AddRule(zoneChain("forward")(z.Name), jump(policyChain(z.Name, "dest", z.PolicyForward))...)
		b.AddRule(zoneChain("output")(z.Name), jump(policyChain(z.Name, "dest", z.PolicyOutput))...)

		if z.Log {
			for _, t := range []Target{TargetReject, TargetDrop} {
				if z.Flags.Has(ToSrc(t)) {
					b.AddRule(policyChain(z.Name, "src", t),
						spec(limitArgs(z.LogLimit), logPrefix(t.String()+"(src "+z.Name+")"))...)
				}
				if z.Flags.Has(t) {
					b.AddRule(policyChain(z.Name, "dest", t),
						spec(limitArgs(z.LogLimit), logPrefix(t.String()+"(dest "+z.Name+")"))...)
				}
			}
		}

	case TableNAT:
		if z.Masq && family == FamilyV4 {
			for _, msrc := range orNil(z.MasqSrc) {
				for _, mdest := range orNil(z.MasqDest) {
					if !addrMatches(msrc, family) || !addrMatches(mdest, family) {
						continue
					}
					b.AddRule(zoneChain("postrouting")(z.Name), spec(srcDest(msrc, mdest), jump("MASQUERADE"))...)
				}
			}
		}
	}

	c.printInterfaceRules(b, table, z)
}

// printInterfaceRules emits the per-device, per-subnet rules. An empty
// device or subnet list counts as one unrestricted entry.
func (c *Compiler) printInterfaceRules(b *RestoreBuilder, table Table, z *Zone) {
	family := b.Family()
	for _, dev := range orNil(z.Devices) {
		for _, sub := range orNil(z.Subnets) {
			if !addrMatches(sub, family) {
				continue
			}
			if dev == nil && sub == nil {
				continue
			}
			c.printInterfaceRule(b, table, z, dev, sub)
		}
	}
}

func (c *Compiler) printInterfaceRule(b *RestoreBuilder, table Table, z *Zone, dev *Device, sub *Address) {
	switch table {
	case TableFilter:
		for _, t := range policyTargets {
			if z.Flags.Has(ToSrc(t)) {
				b.AddRule(policyChain(z.Name, "src", t),
					spec(inOut(dev, nil), srcDest(sub, nil), extra(z.ExtraSrc), jump(jumpTarget(t)))...)
			}
			if z.Flags.Has(t) {
				b.AddRule(policyChain(z.Name, "dest", t),
					spec(inOut(nil, dev), srcDest(nil, sub), extra(z.ExtraDest), jump(jumpTarget(t)))...)
			}
		}

		b.AddRule("delegate_input",
			spec(inOut(dev, nil), srcDest(sub, nil), extra(z.ExtraSrc), jump(zoneChain("input")(z.Name)))...)
		b.AddRule("delegate_forward",
			spec(inOut(dev, nil), srcDest(sub, nil), extra(z.ExtraSrc), jump(zoneChain("forward")(z.Name)))...)
		b.AddRule("delegate_output",
			spec(inOut(nil, dev), srcDest(nil, sub), extra(z.ExtraDest), jump(zoneChain("output")(z.Name)))...)

	case TableNAT:
		if z.Flags.Has(TargetDNAT) {
			b.AddRule("delegate_prerouting",
				spec(inOut(dev, nil), srcDest(sub, nil), extra(z.ExtraSrc), jump(zoneChain("prerouting")(z.Name)))...)
		}
		if z.Flags.Has(TargetSNAT) {
			b.AddRule("delegate_postrouting",
				spec(inOut(nil, dev), srcDest(nil, sub), extra(z.ExtraDest), jump(zoneChain("postrouting")(z.Name)))...)
		}

	case TableMangle:
		if !z.MTUFix {
			return
		}
		syn := []string{"-p", "tcp", "--tcp-flags", "SYN,RST", "SYN"}
		if z.Log {
			b.AddRule("mssfix",
				spec(inOut(nil, dev), srcDest(nil, sub), syn, limitArgs(z.LogLimit),
					comment(z.Name, " (mtu_fix logging)"), logPrefix("MSSFIX("+z.Name+"): "))...)
		}
		b.AddRule("mssfix",
			spec(inOut(nil, dev), srcDest(nil, sub), syn, comment(z.Name, " (mtu_fix)"),
				[]string{"-j", "TCPMSS", "--clamp-mss-to-pmtu"})...)

	case TableRaw:
		if z.Conntrack || c.defaults.DropInvalid {
			return
		}
		b.AddRule("notrack",
			spec(inOut(dev, nil), srcDest(sub, nil), extra(z.ExtraSrc), comment(z.Name, " (notrack)"),
				[]string{"-j", "CT", "--notrack"})...)
	}
}

// orNil returns pointers to the list members, or a single nil when the
// list is empty.
func orNil[T any](list []T) []*T {
	if len(list) == 0 {
		return []*T{nil}
	}
	out := make([]*T, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}

func addrMatches(a *Address, family Family) bool {
	return a == nil || a.Family.Matches(family)
}
