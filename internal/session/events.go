package session

import "github.com/twoseats/twoseats/internal/media"

// State tracks the session lifecycle from creation to a completed
// handshake. It can fall back to Open when the data channel drops and
// the handshake reruns on the next one.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateOpen
	StateHandshaking
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// EventType discriminates session events.
type EventType int

const (
	// EventStatus is a human-readable status line.
	EventStatus EventType = iota

	// EventChat is a chat message from the partner.
	EventChat

	// EventState signals a lifecycle state change.
	EventState

	// EventError reports a failed operation.
	EventError

	// EventPartnerStream delivers the partner's camera stream.
	EventPartnerStream

	// EventMovieStream delivers the shared movie stream (guest side).
	EventMovieStream
)

// Event is what the session surfaces to the UI. Streams are only set on
// the stream event types.
type Event struct {
	Type   EventType
	Text   string
	From   string
	State  State
	Err    error
	Stream *media.RemoteStream
}
