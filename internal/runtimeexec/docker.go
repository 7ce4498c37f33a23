package runtimeexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// WorkdirMount is where the working tree appears inside the container.
const WorkdirMount = "/workspace"

// DockerBackend builds and runs the version-tagged training image locally.
type DockerBackend struct {
	dockerBin string
	workdir   string
	imageRef  string
}

func NewDockerBackend(dockerBin, workdir, imageRef string) (*DockerBackend, error) {
	dockerBin = strings.TrimSpace(dockerBin)
	if dockerBin == "" {
		dockerBin = "docker"
	}
	if _, err := exec.LookPath(dockerBin); err != nil {
		return nil, fmt.Errorf("docker binary not found: %w", err)
	}
	if strings.TrimSpace(imageRef) == "" {
		return nil, errors.New("image ref is required")
	}
	return &DockerBackend{dockerBin: dockerBin, workdir: workdir, imageRef: imageRef}, nil
}

func (b *DockerBackend) Kind() string { return "docker" }

func (b *DockerBackend) ImageRef() string { return b.imageRef }

// BuildImage builds the tagged image from the working tree. Failures are
// ErrBuild; callers must not start a container after one.
func (b *DockerBackend) BuildImage(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, b.dockerBin, "build", "--tag", b.imageRef, b.workdir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBuild, b.imageRef, err)
	}
	return nil
}

// PushImage pushes the tagged image to the registry.
func (b *DockerBackend) PushImage(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, b.dockerBin, "push", b.imageRef)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("push %s: %w", b.imageRef, err)
	}
	return nil
}

// imageExists asks the local daemon whether the tag is already built.
func (b *DockerBackend) imageExists(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, b.dockerBin, "image", "inspect", "--format", "{{.Id}}", b.imageRef)
	out, err := cmd.CombinedOutput()
	if err != nil {
		lower := strings.ToLower(strings.TrimSpace(string(out)))
		if strings.Contains(lower, "no such image") || strings.Contains(lower, "not found") || strings.Contains(lower, "no such object") {
			return false, nil
		}
		return false, fmt.Errorf("docker image inspect failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return true, nil
}

// Execute reuses or builds the image, then runs the command inside it with
// the request's env, the working tree mounted at WorkdirMount, and GPU
// passthrough when requested. The container's exit code is returned
// unchanged.
func (b *DockerBackend) Execute(ctx context.Context, req Request) (int, error) {
	exists, err := b.imageExists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		if err := b.BuildImage(ctx); err != nil {
			return 0, err
		}
	}

	args := []string{"run", "--rm"}
	if req.Interactive {
		args = append(args, "--interactive", "--tty")
	}
	if req.MountWorkdir {
		args = append(args, "--volume", b.workdir+":"+WorkdirMount, "--workdir", WorkdirMount)
	}
	if req.UseGPU {
		args = append(args, "--gpus", "all")
	}
	for _, key := range sortedEnvKeys(req.Env) {
		args = append(args, "--env", key+"="+req.Env[key])
	}
	args = append(args, b.imageRef)
	args = append(args, req.Command...)

	cmd := exec.CommandContext(ctx, b.dockerBin, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("docker run failed: %w", err)
}
