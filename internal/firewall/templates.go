package firewall

import "fmt"

// chainTemplate describes one per-zone chain. A template applies when the
// family and table match and its target is unconditional (TargetUnspec) or
// present in the zone's target set. Custom templates are keyed on the
// custom-chain marker of the family being emitted.
type chainTemplate struct {
	family Family
	table  Table
	target Target
	custom bool
	name   func(zone string) string
}

func zoneChain(suffix string) func(string) string {
	return func(zone string) string {
		return "zone_" + zone + "_" + suffix
	}
}

func userChain(hook string) func(string) string {
	return func(zone string) string {
		return hook + "_" + zone + "_rule"
	}
}

// srcChains are consulted on the origin of traffic.
var srcChains = []chainTemplate{
	{family: FamilyAny, table: TableFilter, name: zoneChain("input")},
	{family: FamilyAny, table: TableFilter, name: zoneChain("output")},
	{family: FamilyAny, table: TableFilter, name: zoneChain("forward")},

	{family: FamilyAny, table: TableFilter, target: TargetSrcAccept, name: zoneChain("src_ACCEPT")},
	{family: FamilyAny, table: TableFilter, target: TargetSrcReject, name: zoneChain("src_REJECT")},
	{family: FamilyAny, table: TableFilter, target: TargetSrcDrop, name: zoneChain("src_DROP")},
}

// destChains are consulted on the destination of traffic or after routing.
var destChains = []chainTemplate{
	{family: FamilyAny, table: TableFilter, target: TargetAccept, name: zoneChain("dest_ACCEPT")},
	{family: FamilyAny, table: TableFilter, target: TargetReject, name: zoneChain("dest_REJECT")},
	{family: FamilyAny, table: TableFilter, target: TargetDrop, name: zoneChain("dest_DROP")},

	{family: FamilyV4, table: TableNAT, target: TargetSNAT, name: zoneChain("postrouting")},
	{family: FamilyV4, table: TableNAT, target: TargetDNAT, name: zoneChain("prerouting")},

	{family: FamilyAny, table: TableFilter, custom: true, name: userChain("input")},
	{family: FamilyAny, table: TableFilter, custom: true, name: userChain("output")},
	{family: FamilyAny, table: TableFilter, custom: true, name: userChain("forwarding")},

	{family: FamilyV4, table: TableNAT, custom: true, name: userChain("prerouting")},
	{family: FamilyV4, table: TableNAT, custom: true, name: userChain("postrouting")},
}

// customJump is a static rule wiring a zone chain into its custom chain.
type customJump struct {
	family Family
	table  Table
	from   string
	hook   string
}

var customJumps = []customJump{
	{FamilyAny, TableFilter, "input", "input"},
	{FamilyAny, TableFilter, "output", "output"},
	{FamilyAny, TableFilter, "forward", "forwarding"},

	{FamilyV4, TableNAT, "prerouting", "prerouting"},
	{FamilyV4, TableNAT, "postrouting", "postrouting"},
}

func (c chainTemplate) applies(table Table, family Family, targets TargetSet) bool {
	if !c.family.Matches(family) || c.table != table {
		return false
	}
	t := c.target
	if c.custom {
		t = CustomChainsFor(family)
	}
	return t == TargetUnspec || targets.Has(t)
}

// chainNames returns the names of every template applying to the zone.
func chainNames(table Table, family Family, zone string, targets TargetSet, templates []chainTemplate) []string {
	var names []string
	for _, c := range templates {
		if c.applies(table, family, targets) {
			names = append(names, c.name(zone))
		}
	}
	return names
}

func (j customJump) applies(table Table, family Family, targets TargetSet) bool {
	return j.family.Matches(family) && j.table == table && targets.Has(CustomChainsFor(family))
}

func (j customJump) chain(zone string) string {
	return zoneChain(j.from)(zone)
}

func (j customJump) args(zone string) []string {
	return []string{
		"-m", "comment", "--comment", fmt.Sprintf("%q", "user chain for "+zone+" "+j.hook),
		"-j", userChain(j.hook)(zone),
	}
}

// policyChain names the chain holding the per-interface matches for a
// decision on the source (src) or destination (dest) side.
func policyChain(zone, side string, t Target) string {
	return zoneChain(side + "_" + FromSrc(t).String())(zone)
}
