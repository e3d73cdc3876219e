// Package testutil holds helpers shared by tests that shell out.
package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"
)

// RequireCommands skips the test unless a POSIX system provides every
// named binary on PATH.
func RequireCommands(t *testing.T, names ...string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("requires %s on PATH", name)
		}
	}
}

// SkipIfShort skips slow process tests under -short or when
// SHIPIT_TEST_SKIP_EXEC is set.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("SHIPIT_TEST_SKIP_EXEC") != "" {
		t.Skip("skipping process test")
	}
}
