package shared

import "fmt"

// LedgerIntegrityLockKey builds redis keys for the per-organization integrity sweep.
func LedgerIntegrityLockKey(orgID int64) string {
	return fmt.Sprintf("ledger:org:%d:integrity:lock", orgID)
}
