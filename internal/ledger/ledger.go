// Package ledger records one entry per dispatched training run. Ledger
// writes are best-effort: a sink failure is logged by the caller and never
// fails the run itself.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SchemaV1 versions the entry shape so old ledger files stay parseable.
const SchemaV1 = "sgpt.run_ledger.v1"

type Entry struct {
	Schema    string    `json:"schema"`
	RunID     string    `json:"run_id"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	ImageRef  string    `json:"image_ref,omitempty"`
	Command   []string  `json:"command"`
	UseGPU    bool      `json:"use_gpu"`
	CreatedAt time.Time `json:"created_at"`
}

func (e Entry) Validate() error {
	if e.Schema != SchemaV1 {
		return errors.New("unknown ledger schema")
	}
	if strings.TrimSpace(e.RunID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(e.Backend) == "" {
		return errors.New("backend is required")
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}

// Appender is one ledger sink.
type Appender interface {
	Append(ctx context.Context, entry Entry) error
}
