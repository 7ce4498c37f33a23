// Package project reads and mutates the persisted project metadata that
// names the training project and carries its semantic version. The version
// is used verbatim as the image tag suffix.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetadataFile is the persisted metadata source, relative to the working tree.
const MetadataFile = "project.yaml"

// ErrConfig marks unreadable, malformed, or unwritable project metadata.
var ErrConfig = errors.New("project_config")

type Metadata struct {
	Name    string `yaml:"name"`
	Org     string `yaml:"org"`
	Version string `yaml:"version"`
}

func Load(dir string) (Metadata, error) {
	path := filepath.Join(dir, MetadataFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return meta, nil
}

func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("project name is required")
	}
	if strings.TrimSpace(m.Org) == "" {
		return errors.New("project org is required")
	}
	if _, _, _, err := parseVersion(m.Version); err != nil {
		return err
	}
	return nil
}

// ImageRef returns the build artifact tag, <org>/<name>:<version>.
func (m Metadata) ImageRef() string {
	return fmt.Sprintf("%s/%s:%s", m.Org, m.Name, m.Version)
}

// BumpPatch increments the patch component, persists the new metadata, and
// returns it. The version never decreases across bumps.
func BumpPatch(dir string) (Metadata, error) {
	meta, err := Load(dir)
	if err != nil {
		return Metadata{}, err
	}
	major, minor, patch, err := parseVersion(meta.Version)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	meta.Version = fmt.Sprintf("%d.%d.%d", major, minor, patch+1)
	if err := save(dir, meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func save(dir string, meta Metadata) error {
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", ErrConfig, err)
	}
	path := filepath.Join(dir, MetadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConfig, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: persist %s: %v", ErrConfig, path, err)
	}
	return nil
}

func parseVersion(v string) (major, minor, patch int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid version %q: want major.minor.patch", v)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid version %q: component %q", v, part)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
