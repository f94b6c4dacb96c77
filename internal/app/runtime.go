package app

import (
	"os"
	"sync/atomic"
)

// TestModeEnv makes the binaries return before touching PostgreSQL or Redis.
const TestModeEnv = "ODYSSEY_LEDGER_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether the binaries should skip runtime side effects. The environment
// is read once and cached until RefreshTestMode.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(TestModeEnv) == "1"
	testMode.Store(&on)
	return on
}
