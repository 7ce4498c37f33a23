// Package provision materializes the named conda environment from a lock
// specification. Installs are deterministic for a given lock file; handling
// of a pre-existing environment is policy-configurable.
package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shakespeare-labs/sgpt/internal/platform/env"
)

var (
	ErrProvision           = errors.New("provision_failed")
	ErrEnvironmentConflict = errors.New("environment_conflict")
)

// ConflictPolicy decides what Install does when the environment already
// exists: replace it wholesale, or refuse.
type ConflictPolicy string

const (
	Replace ConflictPolicy = "replace"
	Fail    ConflictPolicy = "fail"
)

func PolicyFromEnv() (ConflictPolicy, error) {
	raw := strings.ToLower(env.String("SGPT_ENV_CONFLICT", string(Replace)))
	switch ConflictPolicy(raw) {
	case Replace, Fail:
		return ConflictPolicy(raw), nil
	default:
		return "", fmt.Errorf("invalid SGPT_ENV_CONFLICT: %q", raw)
	}
}

type Provisioner struct {
	condaBin     string
	condaLockBin string
	policy       ConflictPolicy
}

func New(condaBin, condaLockBin string, policy ConflictPolicy) *Provisioner {
	if strings.TrimSpace(condaBin) == "" {
		condaBin = "conda"
	}
	if strings.TrimSpace(condaLockBin) == "" {
		condaLockBin = "conda-lock"
	}
	if policy == "" {
		policy = Replace
	}
	return &Provisioner{condaBin: condaBin, condaLockBin: condaLockBin, policy: policy}
}

// Install creates the named environment from lockFile. A pre-existing
// environment is removed first under the Replace policy, or refused with
// ErrEnvironmentConflict under Fail. Re-installing from the same lock file
// resolves to the same dependency set.
func (p *Provisioner) Install(ctx context.Context, lockFile, envName string) error {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return fmt.Errorf("%w: environment name is required", ErrProvision)
	}
	exists, err := p.envExists(ctx, envName)
	if err != nil {
		return err
	}
	if exists {
		if p.policy == Fail {
			return fmt.Errorf("%w: %s", ErrEnvironmentConflict, envName)
		}
		if err := p.Remove(ctx, envName); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(ctx, p.condaLockBin, "install", "--name", envName, lockFile)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: install %s from %s: %v: %s",
			ErrProvision, envName, lockFile, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Remove deletes the named environment entirely. Removing an absent
// environment is not an error.
func (p *Provisioner) Remove(ctx context.Context, envName string) error {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return fmt.Errorf("%w: environment name is required", ErrProvision)
	}
	exists, err := p.envExists(ctx, envName)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	cmd := exec.CommandContext(ctx, p.condaBin, "env", "remove", "--name", envName, "--yes")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: remove %s: %v: %s",
			ErrProvision, envName, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// WrapRun wraps argv so it executes inside the named environment.
func (p *Provisioner) WrapRun(envName string, argv []string) []string {
	wrapped := []string{p.condaBin, "run", "--no-capture-output", "--name", envName}
	return append(wrapped, argv...)
}

type envList struct {
	Envs []string `json:"envs"`
}

func (p *Provisioner) envExists(ctx context.Context, envName string) (bool, error) {
	cmd := exec.CommandContext(ctx, p.condaBin, "env", "list", "--json")
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("%w: list environments: %v", ErrProvision, err)
	}
	var list envList
	if err := json.Unmarshal(out, &list); err != nil {
		return false, fmt.Errorf("%w: parse environment list: %v", ErrProvision, err)
	}
	for _, path := range list.Envs {
		if filepath.Base(strings.TrimSpace(path)) == envName {
			return true, nil
		}
	}
	return false, nil
}
