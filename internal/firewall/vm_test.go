package firewall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"grimm.is/zonefw/internal/testutil"
)

// The kernel parser is the final judge of a document; --test parses it
// without committing.
func TestRestoreDocumentsParse(t *testing.T) {
	testutil.RequireVM(t)

	src := lanZone + `
zone {
  name    = "wan"
  device  = "eth1"
  input   = "REJECT"
  forward = "DROP"
  output  = "ACCEPT"
  masq    = true
  log     = true
}
`
	runner := &RealCommandRunner{}
	for _, f := range Families {
		testutil.RequireCommand(t, f.RestoreCommand())

		c := newTestCompiler(t, src)
		doc := c.Start(f).Build()
		require.NoError(t, runner.RunInput(doc, f.RestoreCommand(), "--test", "--noflush"), f.String())
	}
}
