package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("Hello, world!", "en-us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.ID == "" {
		t.Error("expected non-empty request ID")
	}
	if req.Text != "Hello, world!" {
		t.Errorf("expected text 'Hello, world!', got '%s'", req.Text)
	}
	if req.Voice != "en-us" {
		t.Errorf("expected voice 'en-us', got '%s'", req.Voice)
	}
	if req.CreatedAt.IsZero() {
		t.Error("expected non-zero created_at")
	}
}

func TestNewRequestEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := NewRequest(text, "en-us"); !errors.Is(err, ErrEmptyText) {
			t.Errorf("NewRequest(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	a, _ := NewRequest("Hello", "en-us")
	b, _ := NewRequest("Hello", "en-us")

	if a.ID == b.ID {
		t.Error("expected unique request IDs")
	}
}

func TestTexts(t *testing.T) {
	a, _ := NewRequest("A", "v")
	b, _ := NewRequest("B", "v")

	got := Texts([]Request{a, b})
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("Texts() = %v, want [A B]", got)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded

	var synthErr error = &SynthesisError{Text: "hi", Voice: "en-us", Err: cause}
	if !errors.Is(synthErr, context.DeadlineExceeded) {
		t.Error("SynthesisError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("playing: %w", &SyncError{Op: "toggle", Err: cause})
	var syncErr *SyncError
	if !errors.As(wrapped, &syncErr) {
		t.Fatal("expected errors.As to find SyncError")
	}
	if syncErr.Op != "toggle" {
		t.Errorf("expected op 'toggle', got '%s'", syncErr.Op)
	}

	var chanErr error = &ChannelError{URL: "http://hub/events", Err: cause}
	if !errors.Is(chanErr, context.DeadlineExceeded) {
		t.Error("ChannelError should unwrap to its cause")
	}
}
