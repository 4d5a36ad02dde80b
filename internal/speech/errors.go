package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrSynthesisTimeout marks a synthesis call that ran out of time.
	ErrSynthesisTimeout = errors.New("synthesis timed out")
	// ErrNotAcknowledged is returned when the hub answers without confirming a change.
	ErrNotAcknowledged = errors.New("hub did not acknowledge request")
)

// SynthesisError reports a failed or timed-out text-to-audio conversion.
type SynthesisError struct {
	Text  string
	Voice string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for voice %q: %v", e.Voice, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// SyncError reports a failed exchange with the hub, which owns the pause flag.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ChannelError reports a dropped push subscription. It is never fatal.
type ChannelError struct {
	URL string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("push channel %s: %v", e.URL, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
