package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/twoseats/twoseats/internal/config"
	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/rtc"
	"github.com/twoseats/twoseats/internal/session"
	"github.com/twoseats/twoseats/internal/ui"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool

	flagCameraFront string
	flagCameraBack  string
	flagMic         string
	flagSaveDir     string
)

// addRoomFlags registers the flags shared by host and join.
func addRoomFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDomain, "domain", "", "signaling relay domain")
	cmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	cmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server URL")
	cmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	cmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	cmd.Flags().BoolVar(&flagRelay, "relay", false, "force TURN relay for all traffic")
	cmd.Flags().StringVar(&flagCameraFront, "camera", "", "front camera source (IVF file)")
	cmd.Flags().StringVar(&flagCameraBack, "camera-back", "", "back camera source (IVF file)")
	cmd.Flags().StringVar(&flagMic, "mic", "", "microphone source (Ogg Opus file)")
	cmd.Flags().StringVar(&flagSaveDir, "save-dir", "", "directory for received streams")
}

// LoadConfig builds the configuration from flags, env and defaults.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Domain:      flagDomain,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		ForceRelay:  flagRelay,
		CameraFront: flagCameraFront,
		CameraBack:  flagCameraBack,
		Microphone:  flagMic,
	})
	if err != nil {
		return nil, session.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// startSession connects the transport and runs the room screen to
// completion, then prints the closing summary.
func startSession(cfg *config.Config, roomCode string, role session.Role, player *playback.Player) error {
	devices := media.NewFileDevices(cfg.CameraFront, cfg.CameraBack, cfg.Microphone)

	if infos, err := devices.Enumerate(); err == nil && len(infos) > 0 {
		ui.NewDeviceTable(infos).Render()
		fmt.Println()
	}

	transport := rtc.NewTransport(cfg.WebSocketURL, cfg)
	sess := session.New(roomCode, role, transport, devices, player)

	player.OnPlay = sess.NotifyPlay
	player.OnPause = sess.NotifyPause

	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := sess.Start(ctx)
	cancel()
	stopSpinner()
	if err != nil {
		return err
	}

	opts := ui.RoomOptions{
		Session:         sess,
		Player:          player,
		OnPartnerStream: streamSink("partner-camera.ivf"),
		OnMovieStream:   streamSink("movie.ivf"),
	}

	summary, err := ui.RunRoom(opts)
	sess.Close()
	if err != nil {
		return err
	}

	ui.RenderSessionSummary(summary)
	return nil
}

// streamSink returns a callback that mirrors a remote stream into an
// IVF file under the save directory.
func streamSink(name string) func(*media.RemoteStream) {
	return func(stream *media.RemoteStream) {
		dir := flagSaveDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}

		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return
		}

		playback.NewRemoteRenderer(f).Render(stream)
	}
}
