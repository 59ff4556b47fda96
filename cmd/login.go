package cmd

import (
	"fmt"

	"modworks/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Stores an OAuth token after verifying it",
	Long: `Verifies the token against the authenticated user endpoint and stores
it for subscription management and other user-scoped operations.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		session := bootstrap()
		defer session.Close()

		profile, err := session.Login(args[0])
		if err != nil {
			logger.Log.Fatalw("Login failed", zap.Error(err))
		}
		fmt.Printf("Logged in as %s.\n", profile.Username)
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drops the stored OAuth token",
	Run: func(_ *cobra.Command, _ []string) {
		session := bootstrap()
		defer session.Close()

		if err := session.Logout(); err != nil {
			logger.Log.Fatalw("Logout failed", zap.Error(err))
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
