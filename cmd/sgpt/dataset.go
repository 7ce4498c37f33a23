package main

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"github.com/shakespeare-labs/sgpt/internal/dataset"
	"github.com/shakespeare-labs/sgpt/internal/platform/objectstore"
	"github.com/shakespeare-labs/sgpt/internal/project"
)

var rmDatasetCmd = &cobra.Command{
	Use:     "rm-dataset",
	Aliases: []string{"rm_dataset"},
	Short:   "Delete the local dataset cache",
	Args:    cobra.NoArgs,
	// Purging is best-effort by contract: this command always exits 0.
	RunE: func(_ *cobra.Command, _ []string) error {
		dir, err := workdir()
		if err != nil {
			logger.Warn("dataset purge skipped", "error", err)
			return nil
		}
		cache := dataset.NewCache(dir)
		if err := cache.Purge(); err != nil {
			logger.Warn("dataset purge failed", "error", err)
			return nil
		}
		logger.Info("dataset cache removed", "path", cache.Path())
		return nil
	},
}

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Mirror the dataset cache through the object store",
}

var datasetPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the local dataset cache to the mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		mirror, err := newMirror(cmd.Context())
		if err != nil {
			return err
		}
		cache := dataset.NewCache(dir)
		if err := mirror.Push(cmd.Context(), cache, meta.Version); err != nil {
			return err
		}
		logger.Info("dataset pushed", "key", dataset.ObjectKey(meta.Version))
		return nil
	},
}

var datasetPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Hydrate the local dataset cache from the mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, dir, err := loadProject()
		if err != nil {
			return err
		}
		mirror, err := newMirror(cmd.Context())
		if err != nil {
			return err
		}
		cache := dataset.NewCache(dir)
		if err := mirror.Pull(cmd.Context(), cache, meta.Version); err != nil {
			return err
		}
		logger.Info("dataset pulled", "path", cache.Path())
		return nil
	},
}

func newMirror(ctx context.Context) (*dataset.Mirror, error) {
	client, cfg, err := newObjectStore(ctx)
	if err != nil {
		return nil, err
	}
	return dataset.NewMirror(client, cfg.BucketDatasets)
}

func newObjectStore(ctx context.Context) (*minio.Client, objectstore.Config, error) {
	cfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return nil, objectstore.Config{}, err
	}
	client, err := objectstore.NewClient(cfg)
	if err != nil {
		return nil, objectstore.Config{}, err
	}
	if err := objectstore.EnsureBuckets(ctx, client, cfg); err != nil {
		return nil, objectstore.Config{}, err
	}
	return client, cfg, nil
}

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Increment the project patch version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := workdir()
		if err != nil {
			return err
		}
		meta, err := project.BumpPatch(dir)
		if err != nil {
			return err
		}
		cmd.Println(meta.Version)
		return nil
	},
}

func init() {
	datasetCmd.AddCommand(datasetPushCmd)
	datasetCmd.AddCommand(datasetPullCmd)
	rootCmd.AddCommand(rmDatasetCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(bumpCmd)
}
