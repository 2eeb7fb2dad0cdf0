package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twoseats/twoseats/internal/relay"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay that coordinates peers until their direct
connection is up. The relay only routes small signaling messages; media
never touches it.

Examples:
  twoseats serve
  twoseats serve --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return relay.ListenAndServe(flagPort)
	},
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
