package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shakespeare-labs/sgpt/internal/ledger"
	"github.com/shakespeare-labs/sgpt/internal/project"
	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
	"github.com/shakespeare-labs/sgpt/internal/secrets"
)

type fakeBackend struct {
	kind     string
	code     int
	executed bool
	lastReq  runtimeexec.Request
}

func (b *fakeBackend) Kind() string { return b.kind }

func (b *fakeBackend) Execute(_ context.Context, req runtimeexec.Request) (int, error) {
	b.executed = true
	b.lastReq = req
	return b.code, nil
}

type memAppender struct {
	entries []ledger.Entry
}

func (a *memAppender) Append(_ context.Context, entry ledger.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func testStore(t *testing.T, contents string) *secrets.Store {
	t.Helper()
	store, err := secrets.OpenBlob(base64.StdEncoding.EncodeToString([]byte(contents)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func testMeta() project.Metadata {
	return project.Metadata{Name: "shakespeare-gpt", Org: "bardlabs", Version: "1.2.3"}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrain_BuildsRequest(t *testing.T) {
	backend := &fakeBackend{kind: "process"}
	runs := &memAppender{}
	d := New(quietLogger(), testMeta(), testStore(t, `{"wandb_api_key":"k-123"}`), runs)

	code, err := d.Train(context.Background(), backend, []string{"--config", "small"}, true)
	if err != nil {
		t.Fatalf("Train() err=%v", err)
	}
	if code != 0 {
		t.Fatalf("Train() code=%d", code)
	}

	req := backend.lastReq
	if got := strings.Join(req.Command, " "); got != "python -m gpt.cli train --config small" {
		t.Fatalf("command=%q", got)
	}
	if req.Env[EnvTokenizersParallelism] != "false" {
		t.Fatalf("tokenizer parallelism env=%q", req.Env[EnvTokenizersParallelism])
	}
	if req.Env[EnvModulePath] != "." {
		t.Fatalf("module path env=%q", req.Env[EnvModulePath])
	}
	if req.Env[EnvTrackerKey] != "k-123" {
		t.Fatalf("tracker key not injected")
	}
	if !req.MountWorkdir || !req.UseGPU {
		t.Fatalf("req=%+v", req)
	}
	if !strings.HasPrefix(req.Env[EnvRunID], "run-v1.2.3-") {
		t.Fatalf("run id=%q", req.Env[EnvRunID])
	}

	if len(runs.entries) != 1 {
		t.Fatalf("ledger entries=%d, want 1", len(runs.entries))
	}
	entry := runs.entries[0]
	if entry.Schema != ledger.SchemaV1 || entry.Backend != "process" || entry.Version != "1.2.3" {
		t.Fatalf("entry=%+v", entry)
	}
}

func TestTrain_MissingSecretAbortsBeforeExecute(t *testing.T) {
	backend := &fakeBackend{kind: "docker"}
	d := New(quietLogger(), testMeta(), testStore(t, `{}`), nil)

	_, err := d.Train(context.Background(), backend, nil, false)
	if !errors.Is(err, secrets.ErrSecretNotFound) {
		t.Fatalf("Train() err=%v, want ErrSecretNotFound", err)
	}
	if backend.executed {
		t.Fatalf("backend executed despite missing secret")
	}
}

func TestTrain_ExitCodeUnchanged(t *testing.T) {
	backend := &fakeBackend{kind: "process", code: 137}
	d := New(quietLogger(), testMeta(), testStore(t, `{"wandb_api_key":"k"}`), nil)

	code, err := d.Train(context.Background(), backend, nil, false)
	if err != nil {
		t.Fatalf("Train() err=%v", err)
	}
	if code != 137 {
		t.Fatalf("Train() code=%d, want 137", code)
	}
}

func TestRun_ProcessExitCodePassthrough(t *testing.T) {
	d := New(quietLogger(), testMeta(), testStore(t, `{}`), nil)
	code, err := d.Run(context.Background(), runtimeexec.ProcessBackend{}, []string{"/bin/sh", "-c", "exit 137"}, false, false)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if code != 137 {
		t.Fatalf("Run() code=%d, want 137", code)
	}
}

func TestRun_ExportsSecretStoreBlob(t *testing.T) {
	backend := &fakeBackend{kind: "docker"}
	d := New(quietLogger(), testMeta(), testStore(t, `{"wandb_api_key":"k-123"}`), nil)

	if _, err := d.Run(context.Background(), backend, []string{"bash"}, true, false); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	blob, ok := backend.lastReq.Env[secrets.BlobEnvVar]
	if !ok {
		t.Fatalf("secret store blob not exported for the container boundary")
	}
	inside, err := secrets.OpenBlob(blob)
	if err != nil {
		t.Fatalf("OpenBlob() on exported blob err=%v", err)
	}
	key, err := inside.Load(secrets.KeyTrackerAPIKey)
	if err != nil {
		t.Fatalf("Load() inside container err=%v", err)
	}
	if key.Reveal() != "k-123" {
		t.Fatalf("blob round trip=%q", key.Reveal())
	}
}

func TestRun_NoSecretRequired(t *testing.T) {
	backend := &fakeBackend{kind: "docker"}
	d := New(quietLogger(), testMeta(), testStore(t, `{}`), nil)
	if _, err := d.Run(context.Background(), backend, []string{"bash"}, true, false); err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if _, ok := backend.lastReq.Env[EnvTrackerKey]; ok {
		t.Fatalf("tracker key injected into plain run")
	}
	if !backend.lastReq.Interactive {
		t.Fatalf("interactive flag dropped")
	}
}
