package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// RemoteStream collects the remote tracks of one incoming call. Tracks
// trickle in one at a time from the peer connection, so consumers
// subscribe with OnTrack rather than reading a fixed set.
type RemoteStream struct {
	id string

	mu     sync.Mutex
	tracks []*webrtc.TrackRemote
	subs   []func(*webrtc.TrackRemote)
}

// NewRemoteStream creates an empty remote stream.
func NewRemoteStream(id string) *RemoteStream {
	return &RemoteStream{id: id}
}

// ID returns the stream identifier the remote side assigned.
func (s *RemoteStream) ID() string {
	return s.id
}

// AddTrack records a newly arrived track and notifies subscribers.
func (s *RemoteStream) AddTrack(t *webrtc.TrackRemote) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	subs := make([]func(*webrtc.TrackRemote), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, f := range subs {
		f(t)
	}
}

// Tracks returns a snapshot of the tracks received so far.
func (s *RemoteStream) Tracks() []*webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*webrtc.TrackRemote, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// VideoTrack returns the first video track, or nil.
func (s *RemoteStream) VideoTrack() *webrtc.TrackRemote {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		if t.Kind() == webrtc.RTPCodecTypeVideo {
			return t
		}
	}
	return nil
}

// OnTrack subscribes to track arrivals. Tracks that already arrived are
// replayed immediately so late subscribers miss nothing.
func (s *RemoteStream) OnTrack(f func(*webrtc.TrackRemote)) {
	s.mu.Lock()
	existing := make([]*webrtc.TrackRemote, len(s.tracks))
	copy(existing, s.tracks)
	s.subs = append(s.subs, f)
	s.mu.Unlock()

	for _, t := range existing {
		f(t)
	}
}
