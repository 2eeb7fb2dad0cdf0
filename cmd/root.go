package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/twoseats/twoseats/internal/ui"
	"github.com/twoseats/twoseats/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "twoseats",
	Short:   "Watch movies together over a direct peer-to-peer connection",
	Long:    `TwoSeats is a two-person watch-together tool. One peer hosts a room and shares a movie, the other joins with the room code; both see each other's camera, chat, and the synchronized movie, all over direct WebRTC connections coordinated by a tiny signaling relay.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
