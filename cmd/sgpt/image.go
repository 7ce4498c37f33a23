package main

import (
	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/platform/env"
	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the version-tagged training image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		docker, err := newDockerBackend(meta, dir)
		if err != nil {
			return err
		}
		if err := docker.BuildImage(cmd.Context()); err != nil {
			return err
		}
		logger.Info("image built", "ref", meta.ImageRef())
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Build and push the version-tagged training image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		docker, err := newDockerBackend(meta, dir)
		if err != nil {
			return err
		}
		if err := docker.BuildImage(cmd.Context()); err != nil {
			return err
		}
		if err := docker.PushImage(cmd.Context()); err != nil {
			return err
		}
		logger.Info("image pushed", "ref", meta.ImageRef())
		return nil
	},
}

var runArgs struct {
	gpu bool
}

var runCmd = &cobra.Command{
	Use:   "run [cmd...]",
	Short: "Run a command inside the training container",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInContainer(cmd, args, false)
	},
}

var pokeCmd = &cobra.Command{
	Use:   "poke",
	Short: "Open an interactive shell inside the training container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInContainer(cmd, []string{"bash"}, true)
	},
}

func runInContainer(cmd *cobra.Command, command []string, interactive bool) error {
	meta, dir, err := loadProject()
	if err != nil {
		return err
	}
	docker, err := newDockerBackend(meta, dir)
	if err != nil {
		return err
	}
	dispatcher, closeLedger, err := newDispatcher(cmd.Context(), meta, dir)
	if err != nil {
		return err
	}
	defer closeLedger()

	code, err := dispatcher.Run(cmd.Context(), docker, command, interactive, runArgs.gpu)
	if err != nil {
		return err
	}
	return finish(code)
}

var cloudBuildCmd = &cobra.Command{
	Use:     "cloud-build",
	Aliases: []string{"cloud_build"},
	Short:   "Submit the image build to the remote build service",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		backend, err := runtimeexec.NewCloudBuildBackend(
			env.String("SGPT_GCLOUD_BIN", "gcloud"),
			dir,
			meta.ImageRef(),
			env.String("SGPT_GCP_PROJECT", ""),
		)
		if err != nil {
			return err
		}
		if _, err := backend.Execute(cmd.Context(), runtimeexec.Request{}); err != nil {
			return err
		}
		logger.Info("build submitted", "ref", meta.ImageRef())
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runArgs.gpu, "gpu", true, "request GPU passthrough")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pokeCmd)
	rootCmd.AddCommand(cloudBuildCmd)
}
