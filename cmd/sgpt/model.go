package main

import (
	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/artifacts"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage trained-model artifacts in the object store",
}

var modelPushCmd = &cobra.Command{
	Use:   "push <checkpoint>",
	Short: "Upload a trained checkpoint, keyed by the project version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, _, err := loadProject()
		if err != nil {
			return err
		}
		client, cfg, err := newObjectStore(cmd.Context())
		if err != nil {
			return err
		}
		store, err := artifacts.NewStore(client, cfg.BucketModels)
		if err != nil {
			return err
		}
		key, err := store.PushModel(cmd.Context(), args[0], meta.Version)
		if err != nil {
			return err
		}
		logger.Info("model pushed", "bucket", cfg.BucketModels, "key", key)
		return nil
	},
}

func init() {
	modelCmd.AddCommand(modelPushCmd)
	rootCmd.AddCommand(modelCmd)
}
