package ingest

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := Wrap(KindConflict, "insert object", errors.New("dup"))
	wrapped := fmt.Errorf("handler: %w", err)

	if !errors.Is(wrapped, ErrConflict) {
		t.Fatal("expected conflict sentinel to match")
	}
	if errors.Is(wrapped, ErrStorage) {
		t.Fatal("did not expect storage sentinel to match")
	}
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind, got %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("expected empty kind for plain errors")
	}
	if got := err.Error(); got != "insert object: dup" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindStorage, "op", nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestValidationMessageIsCause(t *testing.T) {
	err := Wrap(KindValidation, "", ErrMissionRequired)
	if err.Error() != "metadata.mission_id required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrMissionRequired) || !errors.Is(err, ErrValidation) {
		t.Fatal("expected both cause and kind to match")
	}
}
