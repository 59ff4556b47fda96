package cmd

import (
	"fmt"
	"time"

	"modworks/installer"
	"modworks/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Syncs subscriptions and installs the latest builds",
	Long: `Drains the server event feeds, reconciles the local metadata cache
and brings every enabled subscription to its latest build: already
installed builds are skipped, valid downloads install without network
traffic, the rest is downloaded, verified and installed.`,
	Run: func(cmd *cobra.Command, _ []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		runUpdate(plain)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().Bool("plain", false, "Disable the interactive progress view")
}

func runUpdate(plain bool) {
	session := bootstrap()
	defer session.Close()

	summary, err := session.Sync()
	if err != nil {
		logger.Log.Fatalw("Sync failed", zap.Error(err))
	}
	logger.Log.Infow("Sync complete",
		zap.Int("mod_events", summary.ModEvents),
		zap.Int("user_events", summary.UserEvents),
		zap.Int("subscriptions", summary.Subscriptions),
		zap.Bool("seeded", summary.Seeded),
	)

	if plain {
		result := session.UpdateInstalled(time.Now())
		fmt.Println(resultLine(result))
		return
	}

	model := initialUpdateModel(session)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		logger.Log.Fatalw("Progress view failed", zap.Error(err))
	}
}

// resultLine summarizes an install pass for plain output.
func resultLine(r installer.Result) string {
	return fmt.Sprintf("Installed %d builds, dropped %d.", len(r.Installed), len(r.Dropped))
}
