package cmd

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/zonefw/internal/firewall"
)

func acceptingRunner() *firewall.MockCommandRunner {
	r := new(firewall.MockCommandRunner)
	r.On("RunInput", mock.Anything, "iptables-restore", "--noflush").Return(nil)
	r.On("RunInput", mock.Anything, "ip6tables-restore", "--noflush").Return(nil)
	return r
}

func TestRunPrint(t *testing.T) {
	o, out := testOptions(t, lanConfig)

	require.NoError(t, RunPrint(context.Background(), o))
	assert.Contains(t, out.String(), "# ipv4: ")
	assert.Contains(t, out.String(), "# ipv6: ")
	assert.Contains(t, out.String(), "-A delegate_input -i eth0 -j zone_lan_input\n")
	assert.NoFileExists(t, o.StatePath)
}

func TestRunStart_DryRun(t *testing.T) {
	o, out := testOptions(t, lanConfig)
	o.DryRun = true
	runner := new(firewall.MockCommandRunner)
	o.Runner = runner

	require.NoError(t, RunStart(context.Background(), o))
	assert.Contains(t, out.String(), "# ipv4 start\n*filter\n")
	runner.AssertNotCalled(t, "RunInput", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunStartStop(t *testing.T) {
	ctx := context.Background()
	o, out := testOptions(t, lanConfig)
	runner := acceptingRunner()
	o.Runner = runner

	require.NoError(t, RunStart(ctx, o))
	assert.Contains(t, out.String(), "ipv4: start applied (")
	assert.Contains(t, out.String(), "ipv6: start applied (")
	assert.FileExists(t, o.StatePath)

	out.Reset()
	require.NoError(t, RunStop(ctx, o))
	assert.Contains(t, out.String(), "ipv4: stop applied (")

	out.Reset()
	require.NoError(t, RunStop(ctx, o))
	assert.Equal(t, "ipv4: nothing to stop\nipv6: nothing to stop\n", out.String())

	runner.AssertNumberOfCalls(t, "RunInput", 4)
}

func TestRunReload(t *testing.T) {
	ctx := context.Background()
	o, out := testOptions(t, lanConfig)
	runner := acceptingRunner()
	o.Runner = runner

	require.NoError(t, RunStart(ctx, o))
	out.Reset()
	require.NoError(t, RunReload(ctx, o))
	assert.Contains(t, out.String(), "ipv4: reload applied (")

	reload := runner.Calls[len(runner.Calls)-2].Arguments.String(0)
	assert.Contains(t, reload, "-X zone_lan_input\n")
	assert.NotContains(t, reload, "-A INPUT -j delegate_input\n")
}

func TestRunDiff(t *testing.T) {
	ctx := context.Background()
	o, out := testOptions(t, lanConfig)
	o.Runner = acceptingRunner()

	err := RunDiff(ctx, o, false)
	assert.ErrorIs(t, err, ErrDiffers)
	assert.Contains(t, out.String(), "no applied document for ipv4\n")

	require.NoError(t, RunStart(ctx, o))

	out.Reset()
	require.NoError(t, RunDiff(ctx, o, false))
	assert.Equal(t, "no differences\n", out.String())

	masq := []byte(lanConfig[:len(lanConfig)-2] + "  masq    = true\n}\n")
	require.NoError(t, os.WriteFile(o.ConfigFile, masq, 0o644))

	out.Reset()
	err = RunDiff(ctx, o, false)
	assert.ErrorIs(t, err, ErrDiffers)
	assert.Contains(t, out.String(), "+nat: -A zone_lan_postrouting -j MASQUERADE\n")
	assert.Contains(t, out.String(), "+++ ipv4 generated")
}

func TestRunDiff_Live(t *testing.T) {
	o, out := testOptions(t, lanConfig)
	runner := new(firewall.MockCommandRunner)
	runner.On("Output", "iptables-save").Return([]byte("*filter\n-A INPUT -j delegate_input\nCOMMIT\n"), nil)
	runner.On("Output", "ip6tables-save").Return([]byte(""), nil)
	o.Runner = runner

	err := RunDiff(context.Background(), o, true)
	assert.ErrorIs(t, err, ErrDiffers)
	assert.Contains(t, out.String(), "--- iptables-save")
	assert.Contains(t, out.String(), "+filter: -A delegate_input -i eth0 -j zone_lan_input\n")
	assert.NoFileExists(t, o.StatePath)
}

func TestRunShow(t *testing.T) {
	ctx := context.Background()
	o, out := testOptions(t, lanConfig)
	o.Runner = acceptingRunner()

	require.NoError(t, RunStart(ctx, o))
	out.Reset()
	require.NoError(t, RunShow(ctx, o, 5))

	yaml := out.String()
	assert.Contains(t, yaml, "zones:\n- name: lan\n")
	assert.Contains(t, yaml, "installed:\n- ipv4\n- ipv6\n")
	assert.Contains(t, yaml, "tables:\n  - filter/ipv4\n  - nat/ipv4\n  - filter/ipv6\n")
	assert.Contains(t, yaml, "kind: start")
}

func TestRuleLines(t *testing.T) {
	doc := `*filter
:INPUT ACCEPT [0:0]
:zone_lan_input - [0:0]
-A INPUT -j delegate_input
-A delegate_input -i eth0 -j zone_lan_input
-F zone_wan_input
COMMIT
*nat
-A POSTROUTING -j delegate_postrouting
-A zone_lan_postrouting -j MASQUERADE
COMMIT
`
	assert.Equal(t, []string{
		"filter: -A delegate_input -i eth0 -j zone_lan_input\n",
		"nat: -A zone_lan_postrouting -j MASQUERADE\n",
	}, ruleLines(doc))

	text, err := diffRules(doc, doc, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = diffRules("", doc, "a", "b")
	require.NoError(t, err)
	assert.Contains(t, text, "+filter: -A delegate_input -i eth0 -j zone_lan_input\n")

	assert.Empty(t, ruleLines(""))
	assert.NotContains(t, text, "POSTROUTING -j delegate_postrouting")
}
