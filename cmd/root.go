package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; subcommands attach themselves in init.
var rootCmd = &cobra.Command{
	Use:   "modworks",
	Short: "Keeps locally installed mods in sync with the mod.works catalog",
	Long: `modworks keeps a game's mod installation in sync with the user's
subscriptions on mod.works: it drains the server event feeds, downloads
and verifies new builds, installs them atomically and records enough
history to roll back.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
