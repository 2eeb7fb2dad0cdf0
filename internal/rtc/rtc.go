// Package rtc implements the peer transport: identifier-addressed data
// channels and media calls over WebRTC, signaled through the relay.
// Each data connection and each media call owns its own peer connection,
// so calls can be replaced without renegotiating anything else.
package rtc

import (
	"errors"

	"github.com/twoseats/twoseats/internal/media"
)

var (
	ErrAlreadyOpen     = errors.New("transport already open")
	ErrNotOpen         = errors.New("transport not open")
	ErrIdentifierTaken = errors.New("identifier taken")
	ErrChannelNotOpen  = errors.New("channel not open")
	ErrNoPendingOffer  = errors.New("no pending offer to answer")
	ErrRelayClosed     = errors.New("relay connection closed")
)

// Channel is a reliable ordered message pipe to the remote peer.
type Channel interface {
	Peer() string
	IsOpen() bool
	Send(data []byte) error
	OnOpen(func())
	OnMessage(func([]byte))
	OnClose(func())
	Close() error
}

// Call is a live media call. The remote stream arrives asynchronously;
// OnStream fires once when the first remote track lands and replays for
// late subscribers.
type Call interface {
	ID() string
	Peer() string
	Tag() string
	OnStream(func(*media.RemoteStream))
	OnClose(func())
	Close() error
}

// Incoming is a media call dialed by the remote peer. It carries no
// media until answered; Answer with a nil stream accepts receive-only.
type Incoming interface {
	Call
	Answer(local *media.Stream) error
}
