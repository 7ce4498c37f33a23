// Package dispatch composes a training invocation: resolve the project
// version, load the tracker credential, build the execution request, and
// hand it to the selected backend. Single-shot, no retries; a failure
// before Execute consumes no container or cloud resources.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shakespeare-labs/sgpt/internal/ledger"
	"github.com/shakespeare-labs/sgpt/internal/project"
	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
	"github.com/shakespeare-labs/sgpt/internal/secrets"
)

// Fixed environment entries every training invocation carries.
const (
	EnvTokenizersParallelism = "TOKENIZERS_PARALLELISM"
	EnvModulePath            = "PYTHONPATH"
	EnvTrackerKey            = "WANDB_API_KEY"
	EnvRunID                 = "SGPT_RUN_ID"
)

// imageRefProvider is implemented by backends that carry a tagged image.
type imageRefProvider interface {
	ImageRef() string
}

type Dispatcher struct {
	logger *slog.Logger
	meta   project.Metadata
	store  *secrets.Store
	runs   ledger.Appender
}

// New builds a dispatcher. The ledger appender may be nil; ledger failures
// never fail a dispatch either way.
func New(logger *slog.Logger, meta project.Metadata, store *secrets.Store, runs ledger.Appender) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, meta: meta, store: store, runs: runs}
}

func trainCommand(args []string) []string {
	cmd := []string{"python", "-m", "gpt.cli", "train"}
	return append(cmd, args...)
}

func baseEnv() map[string]string {
	return map[string]string{
		EnvTokenizersParallelism: "false",
		EnvModulePath:            ".",
	}
}

// Train runs the training program with forwarded args on the given backend.
// The tracker credential is loaded first so a missing secret aborts before
// any backend resource is touched; its value exists only inside the
// request's env map.
func (d *Dispatcher) Train(ctx context.Context, backend runtimeexec.Backend, args []string, useGPU bool) (int, error) {
	secret, err := d.store.Load(secrets.KeyTrackerAPIKey)
	if err != nil {
		return 0, err
	}

	runID := fmt.Sprintf("run-v%s-%s", d.meta.Version, uuid.NewString())
	env := baseEnv()
	env[EnvTrackerKey] = secret.Reveal()
	env[EnvRunID] = runID

	req := runtimeexec.Request{
		Command:      trainCommand(args),
		Env:          env,
		MountWorkdir: true,
		UseGPU:       useGPU,
	}
	d.record(ctx, runID, backend, req)
	d.logger.Info("dispatching training run",
		"run_id", runID, "backend", backend.Kind(), "version", d.meta.Version)
	return backend.Execute(ctx, req)
}

// Run executes an arbitrary command on the backend with the fixed env but
// without tracker auth. The whole secret store rides along base64-encoded
// so tools inside the container can open it themselves; the blob exists
// only in the launched process's environment.
func (d *Dispatcher) Run(ctx context.Context, backend runtimeexec.Backend, command []string, interactive bool, useGPU bool) (int, error) {
	env := baseEnv()
	if blob, err := d.store.EncodeBlob(); err == nil {
		env[secrets.BlobEnvVar] = blob
	}
	req := runtimeexec.Request{
		Command:      command,
		Env:          env,
		MountWorkdir: true,
		UseGPU:       useGPU,
		Interactive:  interactive,
	}
	return backend.Execute(ctx, req)
}

func (d *Dispatcher) record(ctx context.Context, runID string, backend runtimeexec.Backend, req runtimeexec.Request) {
	if d.runs == nil {
		return
	}
	entry := ledger.Entry{
		Schema:    ledger.SchemaV1,
		RunID:     runID,
		Version:   d.meta.Version,
		Backend:   backend.Kind(),
		Command:   req.Command,
		UseGPU:    req.UseGPU,
		CreatedAt: time.Now().UTC(),
	}
	if provider, ok := backend.(imageRefProvider); ok {
		entry.ImageRef = provider.ImageRef()
	}
	if err := d.runs.Append(ctx, entry); err != nil {
		d.logger.Warn("run ledger append failed", "run_id", runID, "error", err)
	}
}
