package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintZoneChains_Filter(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableFilter) })

	assert.Equal(t, []string{
		":zone_lan_input - [0:0]",
		":zone_lan_output - [0:0]",
		":zone_lan_forward - [0:0]",
		":zone_lan_src_ACCEPT - [0:0]",
		":zone_lan_dest_ACCEPT - [0:0]",
		":input_lan_rule - [0:0]",
		":output_lan_rule - [0:0]",
		":forwarding_lan_rule - [0:0]",
		`-A zone_lan_input -m comment --comment "user chain for lan input" -j input_lan_rule`,
		`-A zone_lan_output -m comment --comment "user chain for lan output" -j output_lan_rule`,
		`-A zone_lan_forward -m comment --comment "user chain for lan forwarding" -j forwarding_lan_rule`,
	}, lines)

	z, err := c.Registry().Lookup("lan", true)
	require.NoError(t, err)
	assert.True(t, z.Running.Has(TableFilter, FamilyV4))
	assert.True(t, z.Families.Has(FamilyV4))
	assert.True(t, z.Flags.Has(TargetCustomChainsV4))
	assert.True(t, z.Flags.Has(TargetNoTrack))
}

func TestPrintZoneChains_NAT(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableNAT) })

	assert.Equal(t, []string{
		":zone_lan_postrouting - [0:0]",
		":zone_lan_prerouting - [0:0]",
		":prerouting_lan_rule - [0:0]",
		":postrouting_lan_rule - [0:0]",
		`-A zone_lan_prerouting -m comment --comment "user chain for lan prerouting" -j prerouting_lan_rule`,
		`-A zone_lan_postrouting -m comment --comment "user chain for lan postrouting" -j postrouting_lan_rule`,
	}, lines)
}

func TestPrintZoneChains_NoChainsNoPromotion(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableMangle) })

	assert.Empty(t, lines)
	assert.Empty(t, c.Registry().Running())
}

func TestPrintZoneChains_FamilyMismatch(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name    = "v6only"
  family  = "ipv6"
  device  = "eth0"
  input   = "ACCEPT"
  output  = "ACCEPT"
  forward = "ACCEPT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) {
		c.PrintZoneChains(b, TableFilter)
		c.PrintZoneRules(b, TableFilter)
	})
	assert.Empty(t, lines)

	lines = emit(FamilyV6, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableFilter) })
	assert.Contains(t, lines, ":zone_v6only_input - [0:0]")
	assert.Contains(t, lines, ":input_v6only_rule - [0:0]")
}

func TestPrintZoneChains_SkipsRunningCustomChains(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableFilter) })
	c.Registry().CommitRunning()

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableFilter) })
	assert.Equal(t, 0, countContaining(lines, ":input_lan_rule"))
	assert.Equal(t, 0, countContaining(lines, ":forwarding_lan_rule"))
	assert.Contains(t, lines, ":zone_lan_input - [0:0]")
	assert.Equal(t, 3, countContaining(lines, "user chain for lan"), "jumps into custom chains are still emitted")

	// The other family still gets its own custom chains.
	lines = emit(FamilyV6, func(b *RestoreBuilder) { c.PrintZoneChains(b, TableFilter) })
	assert.Contains(t, lines, ":input_lan_rule - [0:0]")
}

func TestPrintZoneRules_Filter(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })

	assert.Equal(t, []string{
		"-A zone_lan_input -j zone_lan_src_ACCEPT",
		"-A zone_lan_forward -j zone_lan_dest_ACCEPT",
		"-A zone_lan_output -j zone_lan_dest_ACCEPT",
		"-A zone_lan_src_ACCEPT -i eth0 -j ACCEPT",
		"-A zone_lan_dest_ACCEPT -o eth0 -j ACCEPT",
		"-A delegate_input -i eth0 -j zone_lan_input",
		"-A delegate_forward -i eth0 -j zone_lan_forward",
		"-A delegate_output -o eth0 -j zone_lan_output",
	}, lines)
}

func TestPrintZoneRules_NATAndRaw(t *testing.T) {
	c := newTestCompiler(t, lanZone)

	nat := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableNAT) })
	assert.Equal(t, []string{
		"-A delegate_prerouting -i eth0 -j zone_lan_prerouting",
		"-A delegate_postrouting -o eth0 -j zone_lan_postrouting",
	}, nat)

	raw := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableRaw) })
	assert.Equal(t, []string{
		`-A notrack -i eth0 -m comment --comment "lan (notrack)" -j CT --notrack`,
	}, raw)

	mangle := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableMangle) })
	assert.Empty(t, mangle, "no mtu_fix")
}

func TestPrintZoneRules_RejectUsesRejectChain(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name          = "wan"
  device        = "eth1"
  custom_chains = false
  input         = "REJECT"
  output        = "ACCEPT"
  forward       = "DROP"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })

	assert.Contains(t, lines, "-A zone_wan_input -j zone_wan_src_REJECT")
	assert.Contains(t, lines, "-A zone_wan_forward -j zone_wan_dest_DROP")
	assert.Contains(t, lines, "-A zone_wan_src_REJECT -i eth1 -j reject")
	assert.Contains(t, lines, "-A zone_wan_dest_DROP -o eth1 -j DROP")
	assert.Contains(t, lines, "-A zone_wan_dest_ACCEPT -o eth1 -j ACCEPT")
	assert.Equal(t, 0, countContaining(lines, "zone_wan_dest_REJECT"))
}

func TestPrintZoneRules_Log(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name    = "wan"
  device  = "eth1"
  log     = true
  input   = "REJECT"
  output  = "ACCEPT"
  forward = "DROP"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })

	assert.Contains(t, lines, `-A zone_wan_src_REJECT -m limit --limit 10/second -j LOG --log-prefix "REJECT(src wan)"`)
	assert.Contains(t, lines, `-A zone_wan_dest_DROP -m limit --limit 10/second -j LOG --log-prefix "DROP(dest wan)"`)
	assert.Equal(t, 2, countContaining(lines, "-j LOG"))
}

func TestPrintZoneRules_LogBurst(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name            = "wan"
  device          = "eth1"
  log             = true
  log_limit       = "2/minute"
  log_limit_burst = 5
  input           = "DROP"
  output          = "ACCEPT"
  forward         = "ACCEPT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Contains(t, lines, `-A zone_wan_src_DROP -m limit --limit 2/minute --limit-burst 5 -j LOG --log-prefix "DROP(src wan)"`)

	_, warnings := loadTestZones(t, `
zone {
  name            = "wan"
  device          = "eth1"
  log_limit_burst = 0
}
`, StandardDefaults())
	assert.Contains(t, warningMessages(warnings), "zone (test.hcl:2) has invalid value '0' for option 'log_limit_burst'")
}

func TestPrintZoneRules_Masquerade(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name    = "wan"
  device  = "eth1"
  masq    = true
  input   = "REJECT"
  output  = "ACCEPT"
  forward = "REJECT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableNAT) })
	assert.Equal(t, []string{
		"-A zone_wan_postrouting -j MASQUERADE",
		"-A delegate_prerouting -i eth1 -j zone_wan_prerouting",
		"-A delegate_postrouting -o eth1 -j zone_wan_postrouting",
	}, lines)

	raw := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableRaw) })
	assert.Empty(t, raw, "masq forces conntrack")
}

func TestPrintZoneRules_MasqueradeFiltersFamilies(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name      = "wan"
  device    = "eth1"
  masq      = true
  masq_src  = ["10.0.0.0/8", "2001:db8::/32"]
  masq_dest = "!192.0.2.0/24"
  input     = "REJECT"
  output    = "ACCEPT"
  forward   = "REJECT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableNAT) })
	assert.Equal(t, 1, countContaining(lines, "MASQUERADE"))
	assert.Contains(t, lines, "-A zone_wan_postrouting -s 10.0.0.0/8 ! -d 192.0.2.0/24 -j MASQUERADE")
}

func TestPrintZoneRules_SubnetFamilies(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name          = "mixed"
  subnet        = ["192.0.2.0/24", "2001:db8::/32"]
  custom_chains = false
  conntrack     = true
  input         = "ACCEPT"
  output        = "ACCEPT"
  forward       = "ACCEPT"
}
`)

	v4 := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Contains(t, v4, "-A zone_mixed_src_ACCEPT -s 192.0.2.0/24 -j ACCEPT")
	assert.Contains(t, v4, "-A delegate_output -d 192.0.2.0/24 -j zone_mixed_output")
	assert.Equal(t, 0, countContaining(v4, "2001:db8::"))

	v6 := emit(FamilyV6, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Contains(t, v6, "-A zone_mixed_src_ACCEPT -s 2001:db8::/32 -j ACCEPT")
	assert.Equal(t, 0, countContaining(v6, "192.0.2."))
}

func TestPrintZoneRules_DeviceSubnetProduct(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name          = "lan"
  device        = "eth0 eth1"
  subnet        = ["10.0.0.0/24", "10.0.1.0/24"]
  custom_chains = false
  input         = "ACCEPT"
  output        = "ACCEPT"
  forward       = "ACCEPT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Equal(t, 4, countPrefix(lines, "-A delegate_input "))
	assert.Contains(t, lines, "-A delegate_input -i eth1 -s 10.0.0.0/24 -j zone_lan_input")
}

func TestPrintZoneRules_NoSelectorsNoInterfaceRules(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name    = "empty"
  input   = "DROP"
  output  = "DROP"
  forward = "DROP"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Equal(t, []string{
		"-A zone_empty_input -j zone_empty_src_DROP",
		"-A zone_empty_forward -j zone_empty_dest_DROP",
		"-A zone_empty_output -j zone_empty_dest_DROP",
	}, lines)
}

func TestPrintZoneRules_ExtraAndMTUFix(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name          = "wan"
  device        = "!eth0"
  extra         = "-m mark --mark 1"
  mtu_fix       = true
  log           = true
  log_limit     = "5/minute"
  custom_chains = false
  input         = "ACCEPT"
  output        = "ACCEPT"
  forward       = "ACCEPT"
}
`)

	filter := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Contains(t, filter, "-A delegate_input ! -i eth0 -m mark --mark 1 -j zone_wan_input")

	mangle := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableMangle) })
	assert.Equal(t, []string{
		`-A mssfix ! -o eth0 -p tcp --tcp-flags SYN,RST SYN -m limit --limit 5/minute -m comment --comment "wan (mtu_fix logging)" -j LOG --log-prefix "MSSFIX(wan): "`,
		`-A mssfix ! -o eth0 -p tcp --tcp-flags SYN,RST SYN -m comment --comment "wan (mtu_fix)" -j TCPMSS --clamp-mss-to-pmtu`,
	}, mangle)
}

func TestPrintZoneRules_AddressRange(t *testing.T) {
	c := newTestCompiler(t, `
zone {
  name          = "pool"
  subnet        = "10.0.0.10-10.0.0.20"
  custom_chains = false
  conntrack     = true
  input         = "ACCEPT"
  output        = "ACCEPT"
  forward       = "ACCEPT"
}
`)

	lines := emit(FamilyV4, func(b *RestoreBuilder) { c.PrintZoneRules(b, TableFilter) })
	assert.Contains(t, lines, "-A delegate_input -m iprange --src-range 10.0.0.10-10.0.0.20 -j zone_pool_input")
	assert.Contains(t, lines, "-A delegate_output -m iprange --dst-range 10.0.0.10-10.0.0.20 -j zone_pool_output")
}

func TestRestoreBuilder(t *testing.T) {
	b := NewRestoreBuilder(FamilyV6)
	assert.Equal(t, "", b.Build())

	b.BeginTable(TableFilter)
	b.SetPolicy("INPUT", "DROP")
	b.DeclareChain("delegate_input")
	b.AddRule("INPUT", "", "-j", "delegate_input")
	b.DeleteRule("INPUT", "-j", "delegate_input")
	b.FlushChain("delegate_input")
	b.DeleteChain("delegate_input")
	b.Commit()

	assert.Equal(t, "*filter\n"+
		":INPUT DROP [0:0]\n"+
		":delegate_input - [0:0]\n"+
		"-A INPUT -j delegate_input\n"+
		"-D INPUT -j delegate_input\n"+
		"-F delegate_input\n"+
		"-X delegate_input\n"+
		"COMMIT\n", b.Build())
	assert.Equal(t, Counts{Chains: 1, Rules: 1, Flushes: 1, Deletes: 1}, b.Counts())
	assert.Equal(t, FamilyV6, b.Family())
}
