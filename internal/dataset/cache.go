// Package dataset manages the preprocessed wikipedia dataset: the on-disk
// cache reused across training runs, and an object-store mirror for
// hydrating it elsewhere.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the canonical cache directory under the working tree. The
// training program creates it on first use.
const DirName = "wikipedia_ds"

// Cache is a handle over the dataset cache directory.
//
// Known limitation: there is no freshness or schema check attached to the
// cache. Existence means "usable as-is"; the only invalidation is an
// explicit Purge. Callers must not assume cached contents match the current
// training configuration.
type Cache struct {
	root string
}

func NewCache(root string) Cache {
	return Cache{root: root}
}

// Path returns the cache location.
func (c Cache) Path() string {
	return filepath.Join(c.root, DirName)
}

// Exists reports whether the cache directory is present.
func (c Cache) Exists() bool {
	info, err := os.Stat(c.Path())
	return err == nil && info.IsDir()
}

// Purge recursively deletes the cache. A missing cache is a no-op, never an
// error.
func (c Cache) Purge() error {
	if err := os.RemoveAll(c.Path()); err != nil {
		return fmt.Errorf("purge dataset cache: %w", err)
	}
	return nil
}
