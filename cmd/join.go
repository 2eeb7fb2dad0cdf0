package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/session"
)

var joinCmd = &cobra.Command{
	Use:     "join <code-or-link>",
	Aliases: []string{"j"},
	Short:   "Join a room with its code or invite link",
	Long: `Join a room hosted by your partner. Accepts the bare room code or the
full invite link.

Examples:
  twoseats join TS7G2K9Q
  twoseats join "https://relay.twoseats.app/?room=TS7G2K9Q"
  twoseats join TS7G2K9Q --camera front.ivf --mic voice.ogg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no room code specified")
		}
		return joinRoom(args[0])
	},
}

func init() {
	addRoomFlags(joinCmd)
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(input string) error {
	roomCode, err := session.ParseRoomInput(input)
	if err != nil {
		return err
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	// Guests have no local movie; the shared one arrives as a stream.
	player := playback.NewPlayer()

	return startSession(cfg, roomCode, session.RoleGuest, player)
}
