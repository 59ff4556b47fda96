package cmd

import (
	"errors"
	"fmt"

	"modworks/db"
	"modworks/logger"
	"modworks/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback [modID]",
	Short: "Rolls a mod back to its previous build",
	Long: `Restores the most recent archived build of a mod.
Example: modworks rollback 1089

Only builds superseded while KEEP_OLD_VERSIONS was set keep their
archive and can be restored.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		modID := parseModID(args[0])

		session := bootstrap()
		defer session.Close()

		log := logger.Log.With(zap.Int64("mod_id", modID))
		log.Infow("Attempting rollback")

		previous, err := session.Rollback(modID)
		if err != nil {
			if errors.Is(err, db.ErrNoHistory) {
				log.Fatalw("No previous builds recorded for mod")
			}
			log.Fatalw("Rollback failed", zap.Error(err))
		}

		log.Infow(ui.Good("Rollback successful"),
			zap.String("restored_version", previous.Version),
			zap.String("restored_file", previous.FileName),
		)
		fmt.Printf("Successfully rolled back mod %d to build %s\n", modID, previous.Version)
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
