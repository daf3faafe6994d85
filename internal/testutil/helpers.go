package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireVM skips the test if the ZONEFW_VM_TEST environment variable is not set.
// Tests that touch the live ruleset or real links only run in a disposable VM.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("ZONEFW_VM_TEST") == "" {
		t.Skip("Skipping test: requires ZONEFW_VM_TEST environment")
	}
}

// RequireCommand skips the test when name is not on PATH.
func RequireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("Skipping test: %s not found", name)
	}
}
