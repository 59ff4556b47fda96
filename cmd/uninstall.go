package cmd

import (
	"fmt"

	"modworks/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall [modID]",
	Short: "Removes every installed build of a mod",
	Long: `Removes the mod's installed builds and disables it locally. The
subscription is untouched; use unsubscribe to stop following the mod.
Drop-in directories are never removed.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		modID := parseModID(args[0])

		session := bootstrap()
		defer session.Close()

		if err := session.Installer.Uninstall(modID); err != nil {
			logger.Log.Fatalw("Uninstall failed", zap.Int64("mod_id", modID), zap.Error(err))
		}
		session.User.DisableMod(modID)
		if err := session.SaveState(); err != nil {
			logger.Log.Warnw("Failed to save local state", zap.Error(err))
		}
		fmt.Printf("Uninstalled mod %d.\n", modID)
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
