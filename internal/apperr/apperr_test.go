package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewBuildsDottedCode(t *testing.T) {
	cause := errors.New("boom")
	err := New("notes.create", "invalid_kind", cause)

	if got := CodeOf(err); got != "notes.create.invalid_kind" {
		t.Fatalf("unexpected code %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved in chain")
	}
	if err.Error() != "notes.create.invalid_kind: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := New("study.log", "missing_reference_id", nil)
	if err.Error() != "study.log.missing_reference_id" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCodeOfWrappedError(t *testing.T) {
	inner := New("theology.resolve", "query_failed", errors.New("db"))
	wrapped := fmt.Errorf("handler: %w", inner)
	if got := CodeOf(wrapped); got != "theology.resolve.query_failed" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %q", got)
	}
}
