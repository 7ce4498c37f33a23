package runtimeexec

import (
	"context"
	"testing"
)

func TestProcessBackend_ExitCodeUnchanged(t *testing.T) {
	b := ProcessBackend{}
	code, err := b.Execute(context.Background(), Request{
		Command: []string{"/bin/sh", "-c", `exit "$SGPT_TEST_CODE"`},
		Env:     map[string]string{"SGPT_TEST_CODE": "137"},
	})
	if err != nil {
		t.Fatalf("Execute() err=%v", err)
	}
	if code != 137 {
		t.Fatalf("Execute() code=%d, want 137", code)
	}
}

func TestProcessBackend_EnvInjected(t *testing.T) {
	b := ProcessBackend{}
	code, err := b.Execute(context.Background(), Request{
		Command: []string{"/bin/sh", "-c", `test "$TOKENIZERS_PARALLELISM" = false`},
		Env:     map[string]string{"TOKENIZERS_PARALLELISM": "false"},
	})
	if err != nil {
		t.Fatalf("Execute() err=%v", err)
	}
	if code != 0 {
		t.Fatalf("Execute() code=%d, want 0", code)
	}
}

func TestProcessBackend_StartFailure(t *testing.T) {
	b := ProcessBackend{}
	if _, err := b.Execute(context.Background(), Request{
		Command: []string{"/nonexistent/sgpt-test-binary"},
	}); err == nil {
		t.Fatalf("Execute() expected error for missing binary")
	}
}

func TestProcessBackend_EmptyCommand(t *testing.T) {
	b := ProcessBackend{}
	if _, err := b.Execute(context.Background(), Request{}); err == nil {
		t.Fatalf("Execute() expected error for empty command")
	}
}
