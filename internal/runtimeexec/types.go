// Package runtimeexec runs the training program in one of three execution
// contexts: the current process, a local container, or a remote build
// service. All three consume the same Request so environment injection is
// written once.
package runtimeexec

import (
	"context"
	"errors"
	"sort"
)

// Backend executes one Request and reports the child's exit status.
type Backend interface {
	Kind() string
	// Execute blocks until the command completes (process and docker) or
	// until the remote service accepts the submission (cloudbuild). The
	// returned int is the child's exit code, propagated unchanged; errors
	// are reserved for infrastructure failures that prevent execution.
	Execute(ctx context.Context, req Request) (int, error)
}

// Request is a single execution: a command, environment entries injected at
// launch time only, and container options. It is built per invocation and
// never persisted.
type Request struct {
	Command      []string
	Env          map[string]string
	MountWorkdir bool
	UseGPU       bool
	Interactive  bool
}

// sortedEnvKeys gives deterministic env injection order across backends.
func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	// ErrBuild marks an image build failure; no container is started after it.
	ErrBuild = errors.New("image_build_failed")
	// ErrSubmission marks a remote build submission failure.
	ErrSubmission = errors.New("cloud_submission_failed")
)
