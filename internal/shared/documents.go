package shared

import "time"

// DocumentStatus enumerates the lifecycle of business documents posted to the ledger.
type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "draft"
	DocumentStatusPosted DocumentStatus = "posted"
	DocumentStatusVoid   DocumentStatus = "void"
)

// LedgerLink ties a business document to the voucher that recorded it.
type LedgerLink struct {
	VoucherID   int64
	AccountRefs map[string]int64
	At          time.Time
}
