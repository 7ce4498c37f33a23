package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/runtimeexec"
)

var trainArgs struct {
	backend string
	gpu     bool
}

var trainCmd = &cobra.Command{
	Use:   "train [flags] -- [training args]",
	Short: "Dispatch a training run",
	Long: `Dispatch a training run on the selected backend. Arguments after --
are forwarded to the training program unchanged.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}

		var backend runtimeexec.Backend
		switch trainArgs.backend {
		case "process":
			backend = runtimeexec.ProcessBackend{Dir: dir}
		case "docker":
			docker, err := newDockerBackend(meta, dir)
			if err != nil {
				return err
			}
			backend = docker
		default:
			return fmt.Errorf("unknown backend %q (want process or docker)", trainArgs.backend)
		}

		dispatcher, closeLedger, err := newDispatcher(cmd.Context(), meta, dir)
		if err != nil {
			return err
		}
		defer closeLedger()

		code, err := dispatcher.Train(cmd.Context(), backend, args, trainArgs.gpu)
		if err != nil {
			return err
		}
		return finish(code)
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainArgs.backend, "backend", "process", "execution backend: process or docker")
	trainCmd.Flags().BoolVar(&trainArgs.gpu, "gpu", true, "request GPU passthrough (docker backend)")
	rootCmd.AddCommand(trainCmd)
}
