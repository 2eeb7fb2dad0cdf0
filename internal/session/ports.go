package session

import (
	"context"
	"time"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/rtc"
)

// Media call tags carried in call offers so the callee knows how to
// answer before any tracks arrive.
const (
	TagCamera = "camera"
	TagMovie  = "movie"
)

// Transport is the peer transport the session drives: one identifier
// registration, data connections and tagged media calls.
type Transport interface {
	Open(ctx context.Context, id string) error
	Connect(remoteID string) (rtc.Channel, error)
	Call(remoteID string, stream *media.Stream, tag string) (rtc.Call, error)
	OnConnection(func(rtc.Channel))
	OnCall(func(rtc.Incoming))
	OnError(func(error))
	Close() error
}

// Playback is the slice of the movie player the session needs for
// share gating and seek reporting.
type Playback interface {
	Loaded() bool
	Playing() bool
	Position() time.Duration
	Duration() time.Duration
	Seek(fraction float64) time.Duration
	Play() error
	Pause() error
	CaptureStream() (*media.Stream, error)
}
