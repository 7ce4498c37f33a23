package runtimeexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ProcessBackend runs the command in the current OS context with the
// request's env merged over the inherited environment.
type ProcessBackend struct {
	Dir string
}

func (b ProcessBackend) Kind() string { return "process" }

func (b ProcessBackend) Execute(ctx context.Context, req Request) (int, error) {
	if len(req.Command) == 0 {
		return 0, errors.New("command is required")
	}
	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Dir = b.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for _, key := range sortedEnvKeys(req.Env) {
		cmd.Env = append(cmd.Env, key+"="+req.Env[key])
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("start %s: %w", req.Command[0], err)
}
