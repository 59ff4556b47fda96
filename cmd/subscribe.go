package cmd

import (
	"fmt"

	"modworks/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe [modID]",
	Short: "Subscribes to a mod so sync keeps it installed",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		modID := parseModID(args[0])

		session := bootstrap()
		defer session.Close()

		if err := session.Subscribe(modID); err != nil {
			logger.Log.Fatalw("Subscribe failed", zap.Int64("mod_id", modID), zap.Error(err))
		}
		fmt.Printf("Subscribed to mod %d.\n", modID)
	},
}

// unsubscribeCmd represents the unsubscribe command
var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe [modID]",
	Short: "Unsubscribes from a mod",
	Long: `Removes the subscription. Installed files stay on disk until the mod
is uninstalled.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		modID := parseModID(args[0])

		session := bootstrap()
		defer session.Close()

		if err := session.Unsubscribe(modID); err != nil {
			logger.Log.Fatalw("Unsubscribe failed", zap.Int64("mod_id", modID), zap.Error(err))
		}
		fmt.Printf("Unsubscribed from mod %d.\n", modID)
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
}
