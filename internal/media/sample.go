package media

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// SampleTrack is the base Track implementation: a pion sample track with
// an enabled gate. Writers keep pumping while the track is disabled; the
// samples are simply dropped, which is what mute means here.
type SampleTrack struct {
	id    string
	kind  string
	label string
	local *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled bool
	stopped bool
	done    chan struct{}
}

// NewSampleTrack creates an enabled sample track for the given codec.
func NewSampleTrack(kind, label string, capability webrtc.RTPCodecCapability) (*SampleTrack, error) {
	id := uuid.NewString()
	local, err := webrtc.NewTrackLocalStaticSample(capability, id, label)
	if err != nil {
		return nil, err
	}

	return &SampleTrack{
		id:      id,
		kind:    kind,
		label:   label,
		local:   local,
		enabled: true,
		done:    make(chan struct{}),
	}, nil
}

func (t *SampleTrack) ID() string    { return t.id }
func (t *SampleTrack) Kind() string  { return t.kind }
func (t *SampleTrack) Label() string { return t.label }

// Enabled reports whether samples are currently being forwarded.
func (t *SampleTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled flips the mute gate. No renegotiation happens.
func (t *SampleTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Stop permanently stops the track and releases its writer.
func (t *SampleTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
}

// Done is closed when the track has been stopped.
func (t *SampleTrack) Done() <-chan struct{} {
	return t.done
}

// Local returns the underlying pion track for AddTrack calls.
func (t *SampleTrack) Local() webrtc.TrackLocal {
	return t.local
}

// WriteSample forwards one sample to the peer connection unless the
// track is muted or stopped.
func (t *SampleTrack) WriteSample(s pionmedia.Sample) error {
	t.mu.Lock()
	enabled, stopped := t.enabled, t.stopped
	t.mu.Unlock()

	if stopped || !enabled {
		return nil
	}
	return t.local.WriteSample(s)
}
