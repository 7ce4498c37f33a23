// Command sgpt orchestrates reproducible shakespeare-gpt training runs:
// environment bootstrap, image build/push, dataset cache management, and
// training dispatch across process, container, and cloud-build backends.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/dispatch"
	"github.com/shakespeare-labs/sgpt/internal/ledger"
	"github.com/shakespeare-labs/sgpt/internal/platform/env"
	"github.com/shakespeare-labs/sgpt/internal/platform/postgres"
	"github.com/shakespeare-labs/sgpt/internal/project"
	"github.com/shakespeare-labs/sgpt/internal/provision"
	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
	"github.com/shakespeare-labs/sgpt/internal/secrets"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// exitCodeError carries a child process exit status up through cobra so the
// CLI exits with it unchanged.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// finish converts a backend exit code into the command result.
func finish(code int) error {
	if code == 0 {
		return nil
	}
	return &exitCodeError{code: code}
}

var rootCmd = &cobra.Command{
	Use:           "sgpt",
	Short:         "Training-run orchestration for shakespeare-gpt",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func workdir() (string, error) {
	if dir := env.String("SGPT_WORKDIR", ""); dir != "" {
		return dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return dir, nil
}

func loadProject() (project.Metadata, string, error) {
	dir, err := workdir()
	if err != nil {
		return project.Metadata{}, "", err
	}
	meta, err := project.Load(dir)
	if err != nil {
		return project.Metadata{}, "", err
	}
	return meta, dir, nil
}

func newProvisioner() (*provision.Provisioner, error) {
	policy, err := provision.PolicyFromEnv()
	if err != nil {
		return nil, err
	}
	return provision.New(
		env.String("SGPT_CONDA_BIN", "conda"),
		env.String("SGPT_CONDA_LOCK_BIN", "conda-lock"),
		policy,
	), nil
}

func newDockerBackend(meta project.Metadata, dir string) (*runtimeexec.DockerBackend, error) {
	return runtimeexec.NewDockerBackend(env.String("SGPT_DOCKER_BIN", "docker"), dir, meta.ImageRef())
}

// newDispatcher wires secrets and the run ledger. The returned closer
// releases the ledger sink.
func newDispatcher(ctx context.Context, meta project.Metadata, dir string) (*dispatch.Dispatcher, func(), error) {
	store, err := secrets.Open()
	if err != nil {
		return nil, nil, err
	}
	runs, closer := openLedger(ctx, dir)
	return dispatch.New(logger, meta, store, runs), closer, nil
}

// openLedger wires the best available ledger sink. Ledger failures never
// fail a dispatch: an unusable database degrades to the NDJSON file, and an
// unusable file degrades to no ledger at all, each with a warning.
func openLedger(ctx context.Context, dir string) (ledger.Appender, func()) {
	dbCfg, cfgErr := postgres.ConfigFromEnv()
	if cfgErr != nil {
		logger.Warn("run ledger database config invalid", "error", cfgErr)
	} else if dbCfg.Enabled() {
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			logger.Warn("run ledger database unavailable", "error", err)
		} else {
			pg := ledger.NewPostgresAppender(db)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Warn("run ledger schema unavailable", "error", err)
				_ = db.Close()
			} else {
				return pg, func() { _ = db.Close() }
			}
		}
	}

	file, err := ledger.OpenFileAppender(filepath.Join(dir, ledger.DefaultFile))
	if err != nil {
		logger.Warn("run ledger unavailable", "error", err)
		return nil, func() {}
	}
	return file, func() { _ = file.Close() }
}
