package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// Enqueuer submits ledger integrity checks.
type Enqueuer interface {
	EnqueueLedgerIntegrity(ctx context.Context, orgIDs ...int64) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector jobs.QueueInspector
	out       io.Writer
}

// NewJobsCLI builds the helpers around an enqueuer and a queue inspector.
func NewJobsCLI(enqueuer Enqueuer, inspector jobs.QueueInspector, out io.Writer) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector, out: out}
}

// Run executes `integrity [org_id...]` or `stats`.
func (c *JobsCLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("jobs cli: usage: jobs integrity [org_id...] | jobs stats")
	}
	switch args[0] {
	case "integrity":
		orgIDs, err := parseOrgIDs(args[1:])
		if err != nil {
			return err
		}
		return c.triggerIntegrity(ctx, orgIDs)
	case "stats":
		return c.stats()
	default:
		return fmt.Errorf("jobs cli: unsupported command %q", args[0])
	}
}

func (c *JobsCLI) triggerIntegrity(ctx context.Context, orgIDs []int64) error {
	if c.enqueuer == nil {
		return errors.New("jobs cli: client not configured")
	}
	info, err := c.enqueuer.EnqueueLedgerIntegrity(ctx, orgIDs...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "enqueued %s id=%s queue=%s\n", jobs.TaskLedgerIntegrityCheck, info.ID, info.Queue)
	return err
}

func (c *JobsCLI) stats() error {
	if c.inspector == nil {
		return errors.New("jobs cli: inspector not configured")
	}
	stats, err := jobs.InspectQueue(c.inspector)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func parseOrgIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("jobs cli: invalid organization id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
