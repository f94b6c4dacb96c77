package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityCheck recomputes account balances from ledger history.
	TaskLedgerIntegrityCheck = "ledger:integrity_check"
)

// LedgerIntegrityPayload selects the organizations to check. Empty means all of them.
type LedgerIntegrityPayload struct {
	OrgIDs []int64 `json:"org_ids,omitempty"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(orgIDs ...int64) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{OrgIDs: orgIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityCheck, data), nil
}
