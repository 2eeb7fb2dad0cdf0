package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/session"
	"github.com/twoseats/twoseats/internal/ui"
)

var flagMovie string

var hostCmd = &cobra.Command{
	Use:     "host",
	Aliases: []string{"h"},
	Short:   "Host a room and invite your partner",
	Long: `Host a watch-together room. A room code is generated for you; share it
(or the invite link) with your partner so they can join.

Examples:
  twoseats host
  twoseats host --movie movie.ivf --camera front.ivf --mic voice.ogg
  twoseats host --domain relay.example.com --movie movie.ivf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRoom()
	},
}

func init() {
	addRoomFlags(hostCmd)
	hostCmd.Flags().StringVar(&flagMovie, "movie", "", "movie to share (IVF file)")
	rootCmd.AddCommand(hostCmd)
}

func hostRoom() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	player := playback.NewPlayer()
	if flagMovie != "" {
		if err := player.LoadLocal(flagMovie); err != nil {
			return err
		}
	}

	roomCode := session.GenerateRoomCode()

	fmt.Println(ui.NewRoomInfo(roomCode, cfg.GetRoomLink(roomCode)).View())
	fmt.Println()

	return startSession(cfg, roomCode, session.RoleHost, player)
}
