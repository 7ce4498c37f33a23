package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultFile is the NDJSON ledger location, relative to the working tree.
const DefaultFile = ".sgpt/runs.ndjson"

// NDJSONAppender writes entries as newline-delimited JSON.
type NDJSONAppender struct {
	enc    *json.Encoder
	closer io.Closer
}

func NewNDJSONAppender(w io.Writer) *NDJSONAppender {
	return &NDJSONAppender{enc: json.NewEncoder(w)}
}

// OpenFileAppender opens (creating if needed) the append-only ledger file.
func OpenFileAppender(path string) (*NDJSONAppender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	return &NDJSONAppender{enc: json.NewEncoder(f), closer: f}, nil
}

func (a *NDJSONAppender) Append(_ context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return a.enc.Encode(entry)
}

func (a *NDJSONAppender) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
