package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Ogg Opus pages are written at a fixed cadence.
const oggPageDuration = 20 * time.Millisecond

// Constraints mirrors the getUserMedia request shape: which kinds are
// wanted and, for video, the preferred camera facing.
type Constraints struct {
	Video  bool
	Audio  bool
	Facing string
}

// DeviceInfo describes one capture device for enumeration.
type DeviceInfo struct {
	ID     string
	Label  string
	Kind   string
	Facing string
}

// Devices is the capture layer: it hands out live local streams and
// enumerates what is available.
type Devices interface {
	GetUserMedia(c Constraints) (*Stream, error)
	Enumerate() ([]DeviceInfo, error)
}

// FileDevices is a Devices implementation backed by media files. The
// front and back cameras are IVF files, the microphone an Ogg Opus file.
// Empty paths mean the device is absent.
type FileDevices struct {
	Front string
	Back  string
	Mic   string
}

// NewFileDevices builds the capture layer from configured file paths.
func NewFileDevices(front, back, mic string) *FileDevices {
	return &FileDevices{Front: front, Back: back, Mic: mic}
}

// GetUserMedia opens the requested devices and returns a live stream.
// A video request prefers the camera matching the facing constraint and
// falls back to the other one, like the browser's ideal-facing semantics.
func (d *FileDevices) GetUserMedia(c Constraints) (*Stream, error) {
	stream := NewStream()

	if c.Video {
		path := d.cameraFor(c.Facing)
		if path == "" {
			return nil, fmt.Errorf("camera: %w", ErrDeviceUnavailable)
		}

		track, err := newVideoFileTrack(path)
		if err != nil {
			stream.StopAll()
			return nil, err
		}
		stream.AddTrack(track)
	}

	if c.Audio && d.Mic != "" {
		track, err := newAudioFileTrack(d.Mic)
		if err != nil {
			stream.StopAll()
			return nil, err
		}
		stream.AddTrack(track)
	}

	if len(stream.Tracks()) == 0 {
		return nil, ErrDeviceUnavailable
	}

	return stream, nil
}

// cameraFor picks the camera file for a facing mode, falling back to
// whichever camera exists.
func (d *FileDevices) cameraFor(facing string) string {
	preferred, other := d.Front, d.Back
	if facing == FacingEnvironment {
		preferred, other = d.Back, d.Front
	}
	if preferred != "" {
		return preferred
	}
	return other
}

// Enumerate lists the configured devices.
func (d *FileDevices) Enumerate() ([]DeviceInfo, error) {
	var out []DeviceInfo
	if d.Front != "" {
		out = append(out, DeviceInfo{
			ID:     "camera-front",
			Label:  filepath.Base(d.Front),
			Kind:   KindVideo,
			Facing: FacingUser,
		})
	}
	if d.Back != "" {
		out = append(out, DeviceInfo{
			ID:     "camera-back",
			Label:  filepath.Base(d.Back),
			Kind:   KindVideo,
			Facing: FacingEnvironment,
		})
	}
	if d.Mic != "" {
		out = append(out, DeviceInfo{
			ID:    "mic",
			Label: filepath.Base(d.Mic),
			Kind:  KindAudio,
		})
	}
	return out, nil
}

// openDevice opens a media file, translating filesystem errors into the
// capture error taxonomy.
func openDevice(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrDeviceUnavailable)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%s: %w", path, ErrPermissionDenied)
		}
		return nil, err
	}
	return f, nil
}

// newVideoFileTrack starts a VP8 track that loops the IVF file at its
// native frame rate.
func newVideoFileTrack(path string) (*SampleTrack, error) {
	// Validate the file up front so errors surface on GetUserMedia
	// instead of inside the pump.
	f, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	track, err := NewSampleTrack(KindVideo, filepath.Base(path), webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8})
	if err != nil {
		return nil, err
	}

	go pumpIVF(track, path)
	return track, nil
}

// newAudioFileTrack starts an Opus track that loops the Ogg file.
func newAudioFileTrack(path string) (*SampleTrack, error) {
	f, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	track, err := NewSampleTrack(KindAudio, filepath.Base(path), webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus})
	if err != nil {
		return nil, err
	}

	go pumpOgg(track, path)
	return track, nil
}

// ivfFrameDuration probes the IVF header for the source's frame pacing.
func ivfFrameDuration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 33 * time.Millisecond
	}
	defer f.Close()

	_, header, err := ivfreader.NewWith(f)
	if err != nil || header.TimebaseDenominator == 0 {
		return 33 * time.Millisecond
	}

	d := time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	if d <= 0 {
		return 33 * time.Millisecond
	}
	return d
}

// pumpIVF feeds IVF frames into the track until it is stopped, looping
// at EOF so the camera never runs dry. Every read waits for a tick, so
// even a frameless file cannot spin.
func pumpIVF(track *SampleTrack, path string) {
	frameDuration := ivfFrameDuration(path)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("camera source vanished", "path", path, "error", err)
			return
		}

		reader, _, err := ivfreader.NewWith(f)
		if err != nil {
			slog.Warn("bad ivf file", "path", path, "error", err)
			f.Close()
			return
		}

		for {
			select {
			case <-track.Done():
				f.Close()
				return
			case <-ticker.C:
			}

			frame, _, err := reader.ParseNextFrame()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				slog.Warn("ivf read failed", "path", path, "error", err)
				f.Close()
				return
			}

			if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
				slog.Debug("sample write failed", "error", err)
			}
		}
		f.Close()
	}
}

// pumpOgg feeds Ogg Opus pages into the track until it is stopped,
// looping at EOF.
func pumpOgg(track *SampleTrack, path string) {
	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err != nil {
			slog.Warn("microphone source vanished", "path", path, "error", err)
			return
		}

		reader, _, err := oggreader.NewWith(f)
		if err != nil {
			slog.Warn("bad ogg file", "path", path, "error", err)
			f.Close()
			return
		}

		for {
			select {
			case <-track.Done():
				f.Close()
				return
			case <-ticker.C:
			}

			page, _, err := reader.ParseNextPage()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				slog.Warn("ogg read failed", "path", path, "error", err)
				f.Close()
				return
			}

			if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: oggPageDuration}); err != nil {
				slog.Debug("sample write failed", "error", err)
			}
		}
		f.Close()
	}
}
