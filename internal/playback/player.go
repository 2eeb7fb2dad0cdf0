// Package playback drives the local movie: loading a source file,
// play/pause/seek with a wall-clock position, and capturing the output
// as a stream that media calls can carry.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"

	"github.com/twoseats/twoseats/internal/media"
)

var (
	ErrNoSourceProvided   = errors.New("no source provided")
	ErrNothingLoaded      = errors.New("nothing loaded")
	ErrCaptureUnsupported = errors.New("capture not supported for this source")
)

// Player is the local movie player. Position advances against the wall
// clock while playing; there is no decode loop until capture starts.
type Player struct {
	mu            sync.Mutex
	path          string
	duration      time.Duration
	frameDuration time.Duration
	capturable    bool
	playing       bool
	base          time.Duration
	startedAt     time.Time

	captureTrack  *media.SampleTrack
	captureStream *media.Stream

	// OnPlay and OnPause fire on state transitions, including the
	// automatic pause at end of file.
	OnPlay  func()
	OnPause func()
}

// NewPlayer creates an empty player.
func NewPlayer() *Player {
	return &Player{}
}

// LoadLocal loads a movie file. IVF files get a known duration and can
// be captured for sharing; any other file still loads for local
// bookkeeping but reports zero duration and refuses capture.
func (p *Player) LoadLocal(path string) error {
	if path == "" {
		return ErrNoSourceProvided
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	duration, frameDuration, capturable := probeIVF(f)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	p.duration = duration
	p.frameDuration = frameDuration
	p.capturable = capturable
	p.playing = false
	p.base = 0

	return nil
}

// probeIVF reads the IVF header to learn duration and frame pacing.
func probeIVF(r io.Reader) (duration, frameDuration time.Duration, ok bool) {
	_, header, err := ivfreader.NewWith(r)
	if err != nil {
		return 0, 0, false
	}

	if header.TimebaseDenominator == 0 {
		return 0, 0, false
	}

	frameDuration = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	if frameDuration <= 0 {
		frameDuration = 33 * time.Millisecond
	}
	duration = time.Duration(header.NumFrames) * frameDuration

	return duration, frameDuration, true
}

// Loaded reports whether a source has been loaded.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path != ""
}

// Playing reports whether playback is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Duration returns the movie duration, zero when unknown.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Play starts or resumes playback.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.path == "" {
		p.mu.Unlock()
		return ErrNothingLoaded
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	p.playing = true
	p.startedAt = time.Now()
	onPlay := p.OnPlay
	p.mu.Unlock()

	if onPlay != nil {
		onPlay()
	}
	return nil
}

// Pause stops playback, keeping the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return nil
	}
	p.base = p.positionLocked()
	p.playing = false
	onPause := p.OnPause
	p.mu.Unlock()

	if onPause != nil {
		onPause()
	}
	return nil
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	pos := p.base
	if p.playing {
		pos += time.Since(p.startedAt)
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	return pos
}

// Progress returns position/duration in [0,1], and 0 when the duration
// is unknown rather than letting the division blow up.
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.duration <= 0 {
		return 0
	}
	return float64(p.positionLocked()) / float64(p.duration)
}

// Seek jumps to the given fraction of the movie. The fraction is
// clamped to [0,1]; NaN maps to the start. Returns the new position.
func (p *Player) Seek(fraction float64) time.Duration {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = time.Duration(fraction * float64(p.duration))
	if p.playing {
		p.startedAt = time.Now()
	}
	return p.base
}

// CaptureStream returns a live stream of the playing movie, starting
// the decode pump on first use. Only IVF sources can be captured.
func (p *Player) CaptureStream() (*media.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.path == "" {
		return nil, ErrNothingLoaded
	}
	if !p.capturable {
		return nil, ErrCaptureUnsupported
	}
	if p.captureStream != nil {
		return p.captureStream, nil
	}

	track, err := media.NewSampleTrack(media.KindVideo, "movie", pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8})
	if err != nil {
		return nil, err
	}

	p.captureTrack = track
	p.captureStream = media.NewStream(track)

	go p.pump(track)

	return p.captureStream, nil
}

// StopCapture stops the capture pump if one is running.
func (p *Player) StopCapture() {
	p.mu.Lock()
	track := p.captureTrack
	p.captureTrack = nil
	p.captureStream = nil
	p.mu.Unlock()

	if track != nil {
		track.Stop()
	}
}

// pump follows the player clock, reading frames from the source and
// writing them into the capture track. Seeks backwards reopen the file;
// seeks forward skip frames.
func (p *Player) pump(track *media.SampleTrack) {
	p.mu.Lock()
	path := p.path
	frameDuration := p.frameDuration
	p.mu.Unlock()

	for {
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("movie source vanished", "path", path, "error", err)
			return
		}

		reader, _, err := ivfreader.NewWith(f)
		if err != nil {
			slog.Warn("bad ivf file", "path", path, "error", err)
			f.Close()
			return
		}

		ticker := time.NewTicker(frameDuration)
		var sent uint64
		reopen := false

		for !reopen {
			select {
			case <-track.Done():
				ticker.Stop()
				f.Close()
				return
			case <-ticker.C:
			}

			p.mu.Lock()
			playing := p.playing
			pos := p.positionLocked()
			p.mu.Unlock()

			if !playing {
				continue
			}

			want := uint64(pos / frameDuration)
			if want < sent {
				// Seeked backwards: restart from the file header.
				reopen = true
				continue
			}

			for sent < want {
				if _, _, err := reader.ParseNextFrame(); err != nil {
					break
				}
				sent++
			}

			frame, _, err := reader.ParseNextFrame()
			if err != nil {
				// End of file: hold the last frame and pause.
				p.Pause()
				reopen = true
				continue
			}
			sent++

			if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
				slog.Debug("capture write failed", "error", err)
			}
		}

		ticker.Stop()
		f.Close()
	}
}
