package firewall

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/zonefw/internal/config"
	"grimm.is/zonefw/internal/logging"
)

// stubResolver resolves networks from a fixed map.
type stubResolver map[string]string

func (s stubResolver) ResolveDevice(_ context.Context, network string) (string, error) {
	if dev, ok := s[network]; ok {
		return dev, nil
	}
	return "", fmt.Errorf("unknown network %s", network)
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
}

func loadTestZones(t *testing.T, src string, defs Defaults) (*Registry, []Warning) {
	t.Helper()
	res, err := config.LoadHCL([]byte(src), "test.hcl")
	require.NoError(t, err)
	return LoadZones(context.Background(), res.Config.Zones, defs, stubResolver(res.Config.NetworkMap()), testLogger())
}

func newTestCompiler(t *testing.T, src string) *Compiler {
	t.Helper()
	defs := StandardDefaults()
	reg, _ := loadTestZones(t, src, defs)
	return NewCompiler(defs, reg, testLogger())
}

// emit runs fn against a fresh builder and returns the produced lines.
func emit(family Family, fn func(b *RestoreBuilder)) []string {
	b := NewRestoreBuilder(family)
	fn(b)
	return b.Lines()
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func countContaining(lines []string, sub string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, sub) {
			n++
		}
	}
	return n
}

func warningMessages(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

const lanZone = `
network "lan" {
  device = "eth0"
}

zone {
  name    = "lan"
  network = ["lan"]
  input   = "ACCEPT"
  forward = "ACCEPT"
  output  = "ACCEPT"
}
`
