// Package media provides a browser-like media stream abstraction over
// pion sample tracks. Capture devices are file backed: cameras read IVF
// files, microphones read Ogg Opus files.
package media

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Track kinds, matching the browser MediaStreamTrack vocabulary.
const (
	KindVideo = "video"
	KindAudio = "audio"
)

// Camera facing modes.
const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// Track is a local media source that can be attached to a peer connection.
// Disabling a track mutes it without detaching it from the connection.
type Track interface {
	ID() string
	Kind() string
	Label() string
	Enabled() bool
	SetEnabled(bool)
	Stop()
	Local() webrtc.TrackLocal
}

// Stream groups local tracks that travel together on a call.
type Stream struct {
	id string

	mu     sync.Mutex
	tracks []Track
}

// NewStream creates a stream from the given tracks.
func NewStream(tracks ...Track) *Stream {
	s := &Stream{id: uuid.NewString()}
	s.tracks = append(s.tracks, tracks...)
	return s
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// Tracks returns a snapshot of all tracks.
func (s *Stream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// VideoTracks returns the video tracks.
func (s *Stream) VideoTracks() []Track {
	return s.tracksOfKind(KindVideo)
}

// AudioTracks returns the audio tracks.
func (s *Stream) AudioTracks() []Track {
	return s.tracksOfKind(KindAudio)
}

func (s *Stream) tracksOfKind(kind string) []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// AddTrack appends a track to the stream.
func (s *Stream) AddTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

// StopAll stops every track in the stream. Stopping is how capture is
// actually released; merely dropping the stream leaves pumps running.
func (s *Stream) StopAll() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// GuessFacing infers a camera's facing mode from its label. Labels that
// mention the back or environment camera map to environment, everything
// else is assumed user facing.
func GuessFacing(label string) string {
	l := strings.ToLower(label)
	if strings.Contains(l, "back") || strings.Contains(l, "rear") || strings.Contains(l, "environment") {
		return FacingEnvironment
	}
	return FacingUser
}
