package runtimeexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CloudBuildBackend submits the working tree and a build specification to
// the remote build service. Execute returns once the submission is
// accepted; job completion is owned by the remote service.
type CloudBuildBackend struct {
	gcloudBin string
	workdir   string
	imageRef  string
	project   string
}

func NewCloudBuildBackend(gcloudBin, workdir, imageRef, gcpProject string) (*CloudBuildBackend, error) {
	gcloudBin = strings.TrimSpace(gcloudBin)
	if gcloudBin == "" {
		gcloudBin = "gcloud"
	}
	if _, err := exec.LookPath(gcloudBin); err != nil {
		return nil, fmt.Errorf("gcloud binary not found: %w", err)
	}
	if strings.TrimSpace(imageRef) == "" {
		return nil, fmt.Errorf("image ref is required")
	}
	return &CloudBuildBackend{
		gcloudBin: gcloudBin,
		workdir:   workdir,
		imageRef:  imageRef,
		project:   strings.TrimSpace(gcpProject),
	}, nil
}

func (b *CloudBuildBackend) Kind() string { return "cloudbuild" }

type buildStep struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
	Env  []string `yaml:"env,omitempty"`
}

type buildSpec struct {
	Steps  []buildStep `yaml:"steps"`
	Images []string    `yaml:"images,omitempty"`
}

// spec assembles the remote build: build and push the tagged image, plus an
// optional run step when the request carries a command.
func (b *CloudBuildBackend) spec(req Request) buildSpec {
	spec := buildSpec{
		Steps: []buildStep{
			{
				Name: "gcr.io/cloud-builders/docker",
				Args: []string{"build", "--tag", b.imageRef, "."},
			},
		},
		Images: []string{b.imageRef},
	}
	if len(req.Command) > 0 {
		run := buildStep{
			Name: b.imageRef,
			Args: req.Command,
		}
		for _, key := range sortedEnvKeys(req.Env) {
			// The spec is written to disk and uploaded to the build
			// service, so credential-bearing entries must never ride
			// through it.
			if isSensitiveEnvKey(key) {
				continue
			}
			run.Env = append(run.Env, key+"="+req.Env[key])
		}
		spec.Steps = append(spec.Steps, run)
	}
	return spec
}

func isSensitiveEnvKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range []string{"API_KEY", "APIKEY", "TOKEN", "SECRET", "PASSWORD", "CREDENTIAL"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func (b *CloudBuildBackend) Execute(ctx context.Context, req Request) (int, error) {
	raw, err := yaml.Marshal(b.spec(req))
	if err != nil {
		return 0, fmt.Errorf("%w: encode build spec: %v", ErrSubmission, err)
	}

	// The spec file exists only for the duration of the submission.
	tmp, err := os.MkdirTemp("", "sgpt-cloudbuild-")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()
	specPath := filepath.Join(tmp, "cloudbuild.yaml")
	if err := os.WriteFile(specPath, raw, 0o600); err != nil {
		return 0, fmt.Errorf("%w: write build spec: %v", ErrSubmission, err)
	}

	args := []string{"builds", "submit", "--async", "--config", specPath}
	if b.project != "" {
		args = append(args, "--project", b.project)
	}
	args = append(args, b.workdir)

	cmd := exec.CommandContext(ctx, b.gcloudBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("%w: %v: %s", ErrSubmission, err, strings.TrimSpace(string(out)))
	}
	return 0, nil
}
