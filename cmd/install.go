package cmd

import (
	"fmt"
	"time"

	"modworks/api"
	"modworks/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install [modID]",
	Short: "Downloads and installs the latest build of a single mod",
	Long: `Fetches the mod's current profile, caches it and installs the active
build. The mod does not need to be subscribed; subscribe to keep it
updated by sync.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		modID := parseModID(args[0])

		session := bootstrap()
		defer session.Close()

		profile, err := session.Client.GetMod(modID)
		if err != nil {
			logger.Log.Fatalw("Failed to fetch mod", zap.Int64("mod_id", modID), zap.Error(err))
		}
		if err := session.Cache.SaveModProfile(profile); err != nil {
			logger.Log.Warnw("Failed to cache mod profile", zap.Error(err))
		}
		if profile.Modfile.ID == api.NullID {
			logger.Log.Fatalw("Mod has no build to install",
				zap.Int64("mod_id", modID), zap.String("name", profile.Name))
		}

		result := session.Installer.AssertDownloadedAndInstalled([]api.Modfile{profile.Modfile}, time.Now())
		if len(result.Dropped) > 0 {
			logger.Log.Fatalw("Install failed; see log for the dropped build",
				zap.Int64("mod_id", modID))
		}

		session.User.EnableMod(modID)
		if err := session.SaveState(); err != nil {
			logger.Log.Warnw("Failed to save local state", zap.Error(err))
		}
		fmt.Printf("Installed %s %s.\n", profile.Name, profile.Modfile.Version)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
