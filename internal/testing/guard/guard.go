// Package guard switches the binaries into test mode when imported from tests.
package guard

import (
	"os"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

func init() {
	if os.Getenv(app.TestModeEnv) == "" {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
	app.RefreshTestMode()
}
