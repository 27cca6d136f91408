package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gmeet-slash-cmd application
var rootCmd = &cobra.Command{
	Use:   "gmeet-slash-cmd",
	Short: "Slack /meet slash command backed by Google Calendar",
	Long: `gmeet-slash-cmd answers the Slack /meet slash command with a fresh
Google Meet link.

The first time a user runs /meet they are asked to allow access to their
Google Calendar. After that every /meet creates a one hour calendar event
with a Meet conference and posts its link to the channel.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmeet-slash-cmd version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gmeet-slash-cmd version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
