package playback

import (
	"fmt"
	"io"
	"log/slog"

	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"

	"github.com/twoseats/twoseats/internal/media"
)

// RemoteRenderer mirrors a remote movie stream into an IVF sink. It is
// a passive consumer: it never issues transport control, it only renders
// what arrives.
type RemoteRenderer struct {
	out io.Writer
}

// NewRemoteRenderer creates a renderer writing to the given sink.
func NewRemoteRenderer(out io.Writer) *RemoteRenderer {
	return &RemoteRenderer{out: out}
}

// Render subscribes to the stream and copies its video into the sink
// until the track ends. Audio tracks are drained and discarded.
func (r *RemoteRenderer) Render(stream *media.RemoteStream) {
	stream.OnTrack(func(track *pion.TrackRemote) {
		switch track.Kind() {
		case pion.RTPCodecTypeVideo:
			go func() {
				if err := r.copyVideo(track); err != nil {
					slog.Debug("remote render ended", "error", err)
				}
			}()
		case pion.RTPCodecTypeAudio:
			go drain(track)
		}
	})
}

// copyVideo writes the track's RTP packets through an IVF muxer.
func (r *RemoteRenderer) copyVideo(track *pion.TrackRemote) error {
	writer, err := ivfwriter.NewWith(r.out, ivfwriter.WithCodec(pion.MimeTypeVP8))
	if err != nil {
		return fmt.Errorf("create ivf writer: %w", err)
	}
	defer writer.Close()

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return err
		}
		if err := writer.WriteRTP(pkt); err != nil {
			return err
		}
	}
}

// drain keeps a track's RTP flowing so the receiver stays healthy.
func drain(track *pion.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
