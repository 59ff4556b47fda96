package cmd

import (
	"fmt"

	"modworks/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Updates the local metadata cache from the server event feeds",
	Long: `Replays queued subscription changes and drains both event feeds from
the stored watermark. No builds are downloaded or installed; run update
for that.`,
	Run: func(_ *cobra.Command, _ []string) {
		session := bootstrap()
		defer session.Close()

		summary, err := session.Sync()
		if err != nil {
			logger.Log.Fatalw("Sync failed", zap.Error(err))
		}

		if summary.Seeded {
			fmt.Printf("First sync: seeded %d subscriptions from the server.\n", summary.Subscriptions)
			return
		}
		fmt.Printf("Applied %d mod events and %d user events; %d subscriptions.\n",
			summary.ModEvents, summary.UserEvents, summary.Subscriptions)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
