package cmd

import (
	"fmt"
	"time"

	"modworks/db"
	"modworks/logger"
	"modworks/ui"
	"modworks/user"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the session, subscriptions and installed builds",
	Run: func(_ *cobra.Command, _ []string) {
		session := bootstrap()
		defer session.Close()

		switch session.User.TokenState() {
		case user.ValidToken:
			fmt.Println(ui.Good("Logged in."))
		case user.RejectedToken:
			fmt.Println(ui.Bad("Stored token was rejected; run login again."))
		default:
			fmt.Println(ui.Muted("Not logged in."))
		}

		wm := session.Cache.LoadWatermark()
		if wm.LastSyncAt > 0 {
			fmt.Printf("Last sync: %s\n", time.Unix(wm.LastSyncAt, 0).Format(time.RFC1123))
		} else {
			fmt.Println(ui.Muted("Never synced."))
		}
		fmt.Printf("Subscriptions: %d\n\n", len(session.User.SubscribedIDs()))

		builds, err := session.Journal.All()
		if err != nil {
			logger.Log.Fatalw("Failed to read install journal", zap.Error(err))
		}
		if len(builds) == 0 {
			fmt.Println(ui.Muted("No builds installed."))
		} else {
			fmt.Println(ui.Bold("Installed builds:"))
			for _, b := range builds {
				fmt.Println(buildLine(b, session.User.IsEnabled(b.ModID)))
			}
		}

		records, err := session.Installer.Scan()
		if err != nil {
			logger.Log.Warnw("Failed to scan install directory", zap.Error(err))
			return
		}
		dropIns := 0
		for _, rec := range records {
			if rec.DropIn() {
				dropIns++
			}
		}
		if dropIns > 0 {
			fmt.Printf("\n%s\n", ui.Muted(fmt.Sprintf("%d drop-in directories left alone", dropIns)))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// buildLine formats one journal row for the status listing.
func buildLine(b db.InstalledBuild, enabled bool) string {
	state := ui.Good("enabled")
	if !enabled {
		state = ui.Muted("disabled")
	}
	name := b.Name
	if name == "" {
		name = b.FileName
	}
	return fmt.Sprintf("  • %s %s (mod %d, %s)", ui.Accent(name), b.Version, b.ModID, state)
}
