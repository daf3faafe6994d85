package firewall

// baseChain is a chain shared by all zones. Zone rules append their
// delegation matches to it; hook names the builtin chain jumping into it.
type baseChain struct {
	table  Table
	family Family
	name   string
	hook   string
}

var baseChains = []baseChain{
	{TableFilter, FamilyAny, "delegate_input", "INPUT"},
	{TableFilter, FamilyAny, "delegate_output", "OUTPUT"},
	{TableFilter, FamilyAny, "delegate_forward", "FORWARD"},
	{TableFilter, FamilyAny, "reject", ""},

	{TableNAT, FamilyV4, "delegate_prerouting", "PREROUTING"},
	{TableNAT, FamilyV4, "delegate_postrouting", "POSTROUTING"},

	{TableMangle, FamilyAny, "mssfix", "FORWARD"},

	{TableRaw, FamilyAny, "notrack", "PREROUTING"},
}

func baseChainsFor(table Table, family Family) []baseChain {
	var out []baseChain
	for _, bc := range baseChains {
		if bc.table == table && bc.family.Matches(family) {
			out = append(out, bc)
		}
	}
	return out
}

// builtinPolicy maps a zone policy onto a builtin chain policy. Builtin
// chains cannot reject, so REJECT falls back to DROP with an explicit
// reject rule at the tail.
func builtinPolicy(t Target) string {
	if t == TargetAccept {
		return "ACCEPT"
	}
	return "DROP"
}

// printBaseChains sets the builtin policies, declares the base chains and,
// when install is set, hooks them into the builtin chains.
func (c *Compiler) printBaseChains(b *RestoreBuilder, table Table, install bool) {
	if table == TableFilter {
		b.SetPolicy("INPUT", builtinPolicy(c.defaults.PolicyInput))
		b.SetPolicy("OUTPUT", builtinPolicy(c.defaults.PolicyOutput))
		b.SetPolicy("FORWARD", builtinPolicy(c.defaults.PolicyForward))
	}

	chains := baseChainsFor(table, b.Family())
	for _, bc := range chains {
		b.DeclareChain(bc.name)
	}
	if !install {
		return
	}
	for _, bc := range chains {
		if bc.hook != "" {
			b.AddRule(bc.hook, jump(bc.name)...)
		}
	}
}

// printBaseHead emits the rules that precede every zone delegation.
func (c *Compiler) printBaseHead(b *RestoreBuilder, table Table) {
	if table != TableFilter {
		return
	}

	b.AddRule("delegate_input", "-i", "lo", "-j", "ACCEPT")
	b.AddRule("delegate_output", "-o", "lo", "-j", "ACCEPT")

	for _, chain := range []string{"delegate_input", "delegate_output", "delegate_forward"} {
		b.AddRule(chain, "-m", "conntrack", "--ctstate", "RELATED,ESTABLISHED", "-j", "ACCEPT")
		if c.defaults.DropInvalid {
			b.AddRule(chain, "-m", "conntrack", "--ctstate", "INVALID", "-j", "DROP")
		}
	}

	b.AddRule("reject", "-p", "tcp", "-j", "REJECT", "--reject-with", "tcp-reset")
	b.AddRule("reject", "-j", "REJECT", "--reject-with", "port-unreach")
}

// printBaseTail emits the rules that follow every zone delegation.
func (c *Compiler) printBaseTail(b *RestoreBuilder, table Table) {
	if table != TableFilter {
		return
	}

	if c.defaults.PolicyInput == TargetReject {
		b.AddRule("delegate_input", jump("reject")...)
	}
	if c.defaults.PolicyOutput == TargetReject {
		b.AddRule("delegate_output", jump("reject")...)
	}
	if c.defaults.PolicyForward == TargetReject {
		b.AddRule("delegate_forward", jump("reject")...)
	}
}

func (c *Compiler) flushBaseChains(b *RestoreBuilder, table Table) {
	for _, bc := range baseChainsFor(table, b.Family()) {
		b.FlushChain(bc.name)
	}
}

// removeBaseChains unhooks and deletes the base chains. It must follow the
// delete pass of the zones referencing them.
func (c *Compiler) removeBaseChains(b *RestoreBuilder, table Table) {
	chains := baseChainsFor(table, b.Family())
	for _, bc := range chains {
		if bc.hook != "" {
			b.DeleteRule(bc.hook, jump(bc.name)...)
		}
	}
	for _, bc := range chains {
		b.DeleteChain(bc.name)
	}
}

func resetBuiltinPolicies(b *RestoreBuilder, table Table) {
	if table != TableFilter {
		return
	}
	for _, chain := range []string{"INPUT", "OUTPUT", "FORWARD"} {
		b.SetPolicy(chain, "ACCEPT")
	}
}
