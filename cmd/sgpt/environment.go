package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/platform/env"
	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
	"github.com/shakespeare-labs/sgpt/internal/secrets"
	"github.com/shakespeare-labs/sgpt/internal/tracker"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Install the locked conda environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, _, err := loadProject()
		if err != nil {
			return err
		}
		p, err := newProvisioner()
		if err != nil {
			return err
		}
		lockFile := env.String("SGPT_LOCK_FILE", "conda-lock.yml")
		if err := p.Install(cmd.Context(), lockFile, meta.Name); err != nil {
			return err
		}
		logger.Info("environment installed", "env", meta.Name, "lock", lockFile)

		verify, err := env.Bool("SGPT_VERIFY_TRACKER", false)
		if err != nil {
			return err
		}
		if verify {
			if err := verifyTracker(cmd); err != nil {
				return err
			}
		}
		return nil
	},
}

func verifyTracker(cmd *cobra.Command) error {
	store, err := secrets.Open()
	if err != nil {
		return err
	}
	key, err := store.Load(secrets.KeyTrackerAPIKey)
	if err != nil {
		return err
	}
	cfg, err := tracker.ConfigFromEnv()
	if err != nil {
		return err
	}
	client, err := tracker.New(cfg, key)
	if err != nil {
		return err
	}
	if err := client.Verify(cmd.Context()); err != nil {
		if errors.Is(err, tracker.ErrUnauthorized) {
			return errors.New("tracker rejected the stored credential")
		}
		return err
	}
	logger.Info("tracker credential verified")
	return nil
}

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Delete the conda environment entirely",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, _, err := loadProject()
		if err != nil {
			return err
		}
		p, err := newProvisioner()
		if err != nil {
			return err
		}
		if err := p.Remove(cmd.Context(), meta.Name); err != nil {
			return err
		}
		logger.Info("environment removed", "env", meta.Name)
		return nil
	},
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Run the linter inside the project environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		p, err := newProvisioner()
		if err != nil {
			return err
		}
		backend := runtimeexec.ProcessBackend{Dir: dir}
		code, err := backend.Execute(cmd.Context(), runtimeexec.Request{
			Command: p.WrapRun(meta.Name, []string{"ruff", "check", "."}),
		})
		if err != nil {
			return err
		}
		return finish(code)
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(nukeCmd)
	rootCmd.AddCommand(lintCmd)
}
