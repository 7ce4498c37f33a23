package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeMetadata(t *testing.T, dir, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte(contents), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "name: shakespeare-gpt\norg: bardlabs\nversion: 1.2.3\n")

	meta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if meta.Version != "1.2.3" {
		t.Fatalf("Load() version=%q", meta.Version)
	}
	if got := meta.ImageRef(); got != "bardlabs/shakespeare-gpt:1.2.3" {
		t.Fatalf("ImageRef()=%q", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("Load() err=%v, want ErrConfig", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "name: shakespeare-gpt\norg: bardlabs\nversion: nope\n")
	if _, err := Load(dir); !errors.Is(err, ErrConfig) {
		t.Fatalf("Load() err=%v, want ErrConfig", err)
	}
}

func TestBumpPatch(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "name: shakespeare-gpt\norg: bardlabs\nversion: 1.2.3\n")

	meta, err := BumpPatch(dir)
	if err != nil {
		t.Fatalf("BumpPatch() err=%v", err)
	}
	if meta.Version != "1.2.4" {
		t.Fatalf("BumpPatch()=%q, want 1.2.4", meta.Version)
	}

	meta, err = BumpPatch(dir)
	if err != nil {
		t.Fatalf("BumpPatch() repeat err=%v", err)
	}
	if meta.Version != "1.2.5" {
		t.Fatalf("BumpPatch() repeat=%q, want 1.2.5", meta.Version)
	}

	persisted, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() after bump err=%v", err)
	}
	if persisted.Version != "1.2.5" {
		t.Fatalf("persisted version=%q, want 1.2.5", persisted.Version)
	}
}
