package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeConda writes stub conda and conda-lock executables that track state
// under a scratch directory: an "envs/<name>" marker per installed
// environment and an append-only invocation log.
func fakeConda(t *testing.T) (condaBin, condaLockBin, stateDir string) {
	t.Helper()
	dir := t.TempDir()
	stateDir = filepath.Join(dir, "state")
	if err := os.MkdirAll(filepath.Join(stateDir, "envs"), 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}

	condaBin = filepath.Join(dir, "conda")
	conda := `#!/bin/sh
state="$SGPT_TEST_STATE"
echo "conda $@" >> "$state/log"
if [ "$1" = "env" ] && [ "$2" = "list" ]; then
  printf '{"envs":["/opt/conda"'
  for e in "$state"/envs/*; do
    [ -e "$e" ] || continue
    printf ',"/opt/conda/envs/%s"' "$(basename "$e")"
  done
  printf ']}\n'
  exit 0
fi
if [ "$1" = "env" ] && [ "$2" = "remove" ]; then
  rm -f "$state/envs/$4"
  exit 0
fi
exit 0
`
	if err := os.WriteFile(condaBin, []byte(conda), 0o755); err != nil {
		t.Fatalf("write conda stub: %v", err)
	}

	condaLockBin = filepath.Join(dir, "conda-lock")
	condaLock := `#!/bin/sh
state="$SGPT_TEST_STATE"
echo "conda-lock $@" >> "$state/log"
case "$4" in
  *bad.lock) echo "no matching platform packages" >&2; exit 1;;
esac
touch "$state/envs/$3"
exit 0
`
	if err := os.WriteFile(condaLockBin, []byte(condaLock), 0o755); err != nil {
		t.Fatalf("write conda-lock stub: %v", err)
	}

	t.Setenv("SGPT_TEST_STATE", stateDir)
	return condaBin, condaLockBin, stateDir
}

func readLog(t *testing.T, stateDir string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(stateDir, "log"))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("read log: %v", err)
	}
	return string(raw)
}

func TestInstall_Idempotent(t *testing.T) {
	conda, condaLock, state := fakeConda(t)
	p := New(conda, condaLock, Replace)
	ctx := context.Background()

	if err := p.Install(ctx, "conda-lock.yml", "shakespeare-gpt"); err != nil {
		t.Fatalf("Install() err=%v", err)
	}
	if err := p.Install(ctx, "conda-lock.yml", "shakespeare-gpt"); err != nil {
		t.Fatalf("Install() repeat err=%v", err)
	}

	log := readLog(t, state)
	if got := strings.Count(log, "conda-lock install"); got != 2 {
		t.Fatalf("install invocations=%d, want 2\n%s", got, log)
	}
	// Replace policy removes the stale environment before the second install.
	if got := strings.Count(log, "conda env remove"); got != 1 {
		t.Fatalf("remove invocations=%d, want 1\n%s", got, log)
	}
	if _, err := os.Stat(filepath.Join(state, "envs", "shakespeare-gpt")); err != nil {
		t.Fatalf("environment marker missing after reinstall: %v", err)
	}
}

func TestInstall_ConflictRefused(t *testing.T) {
	conda, condaLock, state := fakeConda(t)
	ctx := context.Background()

	if err := New(conda, condaLock, Replace).Install(ctx, "conda-lock.yml", "shakespeare-gpt"); err != nil {
		t.Fatalf("Install() err=%v", err)
	}

	err := New(conda, condaLock, Fail).Install(ctx, "conda-lock.yml", "shakespeare-gpt")
	if !errors.Is(err, ErrEnvironmentConflict) {
		t.Fatalf("Install() err=%v, want ErrEnvironmentConflict", err)
	}
	if got := strings.Count(readLog(t, state), "conda-lock install"); got != 1 {
		t.Fatalf("install invocations=%d, want 1", got)
	}
}

func TestInstall_LockFailure(t *testing.T) {
	conda, condaLock, _ := fakeConda(t)
	err := New(conda, condaLock, Replace).Install(context.Background(), "gpu-bad.lock", "shakespeare-gpt")
	if !errors.Is(err, ErrProvision) {
		t.Fatalf("Install() err=%v, want ErrProvision", err)
	}
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	conda, condaLock, state := fakeConda(t)
	if err := New(conda, condaLock, Replace).Remove(context.Background(), "never-installed"); err != nil {
		t.Fatalf("Remove() err=%v", err)
	}
	if strings.Contains(readLog(t, state), "conda env remove") {
		t.Fatalf("remove should not be invoked for an absent environment")
	}
}

func TestWrapRun(t *testing.T) {
	p := New("conda", "conda-lock", Replace)
	got := p.WrapRun("shakespeare-gpt", []string{"ruff", "check", "."})
	want := "conda run --no-capture-output --name shakespeare-gpt ruff check ."
	if strings.Join(got, " ") != want {
		t.Fatalf("WrapRun()=%q, want %q", strings.Join(got, " "), want)
	}
}

func TestPolicyFromEnv(t *testing.T) {
	policy, err := PolicyFromEnv()
	if err != nil || policy != Replace {
		t.Fatalf("PolicyFromEnv()=%v,%v, want replace", policy, err)
	}
	t.Setenv("SGPT_ENV_CONFLICT", "fail")
	policy, err = PolicyFromEnv()
	if err != nil || policy != Fail {
		t.Fatalf("PolicyFromEnv()=%v,%v, want fail", policy, err)
	}
	t.Setenv("SGPT_ENV_CONFLICT", "panic")
	if _, err := PolicyFromEnv(); err == nil {
		t.Fatalf("PolicyFromEnv() expected error")
	}
}
