package auth

import (
	"errors"
	"testing"
)

func TestNewPasswordGateRequiresPassword(t *testing.T) {
	if _, err := NewPasswordGate("   "); !errors.Is(err, ErrMissingPassword) {
		t.Fatalf("expected missing password error, got %v", err)
	}
}

func TestPasswordGateCheck(t *testing.T) {
	gate, err := NewPasswordGate(" hunter2 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := gate.Check("hunter2"); err != nil {
		t.Fatalf("expected trimmed password to match, got %v", err)
	}
	if err := gate.Check("wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected wrong password error, got %v", err)
	}
	if err := gate.Check(""); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected empty attempt rejected, got %v", err)
	}
}
