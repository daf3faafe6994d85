package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"grimm.is/zonefw/internal/i18n"
	"grimm.is/zonefw/internal/network"
)

func init() {
	Printer = i18n.NewPrinter(language.English)
}

const lanConfig = `
network "lan" {
  device = "eth0"
}

zone {
  name    = "lan"
  network = ["lan"]
  input   = "ACCEPT"
  forward = "REJECT"
  output  = "ACCEPT"
}
`

func writeConfig(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "zonefw.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func testOptions(t *testing.T, src string) (*Options, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	return &Options{
		ConfigFile: writeConfig(t, dir, src),
		StatePath:  filepath.Join(dir, "state", "state.db"),
		LogLevel:   "error",
		Stdout:     out,
		Resolver:   network.StaticResolver{"lan": "eth0"},
	}, out
}

func TestRunCheck_ValidConfig(t *testing.T) {
	o, out := testOptions(t, lanConfig)

	require.NoError(t, RunCheck(context.Background(), o, false))
	assert.Contains(t, out.String(), "configuration is valid\n")
	assert.Contains(t, out.String(), "1 zones loaded, 0 warnings\n")
	assert.NoFileExists(t, o.StatePath)
}

func TestRunCheck_Verbose(t *testing.T) {
	o, out := testOptions(t, lanConfig)

	require.NoError(t, RunCheck(context.Background(), o, true))
	assert.Contains(t, out.String(), "ZONE")
	assert.Regexp(t, `lan\s+any\s+eth0\s+-\s+ACCEPT\s+ACCEPT\s+REJECT\s+no`, out.String())
}

func TestRunCheck_Warnings(t *testing.T) {
	o, out := testOptions(t, `
zone {
  name  = "empty"
  input = "ACCEPT"
  output = "ACCEPT"
  forward = "ACCEPT"
}
`)

	require.NoError(t, RunCheck(context.Background(), o, false))
	assert.Contains(t, out.String(), "1 zones loaded, 1 warnings\n")
	assert.Contains(t, out.String(), "  warning: zone 'empty' has no device, network, subnet or extra options\n")
}

func TestRunCheck_InvalidConfig(t *testing.T) {
	o, _ := testOptions(t, `
zone {
    # Missing closing brace
`)

	err := RunCheck(context.Background(), o, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration invalid")
}

func TestRunCheck_NoFile(t *testing.T) {
	err := RunCheck(context.Background(), &Options{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage:")
}

func TestRunFmt(t *testing.T) {
	o, out := testOptions(t, "zone {\nname=\"lan\"\n   network = [\"lan\"]\n}\n")

	require.NoError(t, RunFmt(o, false))
	assert.Equal(t, "zone {\n  name    = \"lan\"\n  network = [\"lan\"]\n}\n", out.String())

	out.Reset()
	require.NoError(t, RunFmt(o, true))
	data, err := os.ReadFile(o.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, "zone {\n  name    = \"lan\"\n  network = [\"lan\"]\n}\n", string(data))
	assert.Equal(t, o.ConfigFile+"\n", out.String())

	out.Reset()
	require.NoError(t, RunFmt(o, true))
	assert.Empty(t, out.String(), "already formatted")
}

func TestRunVersion(t *testing.T) {
	out := &bytes.Buffer{}
	RunVersion(&Options{Stdout: out})
	assert.Contains(t, out.String(), "zonefw ")
}
