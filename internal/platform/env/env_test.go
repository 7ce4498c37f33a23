package env

import (
	"testing"
	"time"
)

func TestString_Default(t *testing.T) {
	got := String("SGPT_ENV_STRING_DOES_NOT_EXIST", "fallback")
	if got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}
}

func TestString_Override(t *testing.T) {
	t.Setenv("SGPT_ENV_STRING_KEY", "value")
	got := String("SGPT_ENV_STRING_KEY", "fallback")
	if got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
}

func TestBool_Default(t *testing.T) {
	got, err := Bool("SGPT_ENV_BOOL_DOES_NOT_EXIST", true)
	if err != nil {
		t.Fatalf("Bool() err=%v", err)
	}
	if got != true {
		t.Fatalf("Bool()=%v, want true", got)
	}
}

func TestBool_Invalid(t *testing.T) {
	t.Setenv("SGPT_ENV_BOOL_KEY", "nope")
	if _, err := Bool("SGPT_ENV_BOOL_KEY", false); err == nil {
		t.Fatalf("Bool() expected error")
	}
}

func TestInt_Override(t *testing.T) {
	t.Setenv("SGPT_ENV_INT_KEY", "7")
	got, err := Int("SGPT_ENV_INT_KEY", 42)
	if err != nil {
		t.Fatalf("Int() err=%v", err)
	}
	if got != 7 {
		t.Fatalf("Int()=%v, want 7", got)
	}
}

func TestDuration_Override(t *testing.T) {
	t.Setenv("SGPT_ENV_DURATION_KEY", "250ms")
	got, err := Duration("SGPT_ENV_DURATION_KEY", 5*time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 250*time.Millisecond {
		t.Fatalf("Duration()=%v, want 250ms", got)
	}
}

func TestDuration_Invalid(t *testing.T) {
	t.Setenv("SGPT_ENV_DURATION_KEY", "soon")
	if _, err := Duration("SGPT_ENV_DURATION_KEY", time.Second); err == nil {
		t.Fatalf("Duration() expected error")
	}
}
