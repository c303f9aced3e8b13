package scsynth

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/chabad360/go-scsynth/osc"
)

// ErrTimeout is returned when no reply arrives inside the configured window.
var ErrTimeout = errors.New("scsynth: timed out waiting for reply")

// ErrClosed is returned when an operation is attempted on a closed client.
var ErrClosed = errors.New("scsynth: client is closed")

// CommunicationError wraps a reply-correlation failure together with the
// outgoing message that caused it, so the caller can tell which request went
// unanswered.
type CommunicationError struct {
	Msg *osc.Message
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("scsynth: no reply for %s: %v", e.Msg.Address, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// AllocationError reports that a block allocator could not satisfy a request
// for a contiguous run of ids.
type AllocationError struct {
	Want      int
	Remaining int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("scsynth: cannot allocate %d contiguous ids (%d free)", e.Want, e.Remaining)
}

// KindMismatchError reports a registry lookup that found a live node of an
// incompatible kind. This is a programming error: an id was reused across
// Synth and Group.
type KindMismatchError struct {
	ID        int32
	WantGroup bool
}

func (e *KindMismatchError) Error() string {
	want, got := "synth", "group"
	if e.WantGroup {
		want, got = got, want
	}
	return fmt.Sprintf("scsynth: node %d is a %s, requested as %s", e.ID, got, want)
}

// NotReadyError reports an operation on a resource that is freed or was never
// confirmed by the server. Raised locally, before any network I/O.
type NotReadyError struct {
	ID     int32
	Reason string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("scsynth: node %d %s", e.ID, e.Reason)
}
