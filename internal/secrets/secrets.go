// Package secrets loads credentials from the local secret store and hands
// them out as values that redact themselves on any serialization attempt.
// A loaded Secret is meant to be scoped to a single execution's environment
// construction and must never be written to an image layer or a log line.
package secrets

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shakespeare-labs/sgpt/internal/platform/env"
)

// KeyTrackerAPIKey is the experiment-tracker credential injected into
// training runs as WANDB_API_KEY.
const KeyTrackerAPIKey = "wandb_api_key"

// BlobEnvVar carries the whole store, base64-encoded, across a container
// boundary. When set it takes precedence over the store file.
const BlobEnvVar = "SGPT_SECRETS_B64"

var (
	ErrSecretNotFound   = errors.New("secret_not_found")
	ErrStoreUnavailable = errors.New("secret_store_unavailable")
)

const redacted = "[redacted]"

// Secret is a credential value that refuses to serialize. Only Reveal
// returns the raw value.
type Secret struct {
	value string
}

func (s Secret) Reveal() string { return s.value }

func (s Secret) IsZero() bool { return s.value == "" }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return "secrets.Secret(" + redacted + ")" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s Secret) MarshalYAML() (any, error) { return redacted, nil }

// Store is a flat key/value credential store.
type Store struct {
	values map[string]string
}

// Open resolves the store from the environment: the base64 blob when
// present, otherwise the secrets file.
func Open() (*Store, error) {
	if blob := env.String(BlobEnvVar, ""); blob != "" {
		return OpenBlob(blob)
	}
	return OpenFile(DefaultPath())
}

// DefaultPath is the store file location, overridable via SGPT_SECRETS_FILE.
func DefaultPath() string {
	if path := env.String("SGPT_SECRETS_FILE", ""); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "secrets.json")
	}
	return filepath.Join(home, ".config", "shakespeare-gpt", "secrets.json")
}

func OpenFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreUnavailable, path, err)
	}
	return decode(raw)
}

func OpenBlob(b64 string) (*Store, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode blob: %v", ErrStoreUnavailable, err)
	}
	return decode(raw)
}

func decode(raw []byte) (*Store, error) {
	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: parse store: %v", ErrStoreUnavailable, err)
	}
	return &Store{values: values}, nil
}

// Load returns the named secret. Absent keys fail with ErrSecretNotFound.
func (s *Store) Load(key string) (Secret, error) {
	if s == nil || s.values == nil {
		return Secret{}, ErrStoreUnavailable
	}
	value, ok := s.values[key]
	if !ok || value == "" {
		return Secret{}, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return Secret{value: value}, nil
}

// EncodeBlob serializes the store for transport through a container
// boundary as a single base64 environment variable.
func (s *Store) EncodeBlob() (string, error) {
	if s == nil || s.values == nil {
		return "", ErrStoreUnavailable
	}
	raw, err := json.Marshal(s.values)
	if err != nil {
		return "", fmt.Errorf("encode store: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
