package cmd

import (
	"strconv"

	"modworks/config"
	"modworks/logger"
	"modworks/sdk"

	"go.uber.org/zap"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap() *sdk.Session {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	session, err := sdk.Open(cfg, logger.Log)
	if err != nil {
		logger.Log.Fatalw("Failed to open session", zap.Error(err))
	}

	logger.Log.Infow("Session ready",
		zap.Int64("game_id", cfg.GameID),
		zap.String("install_dir", cfg.InstallDir),
	)
	return session
}

// parseModID parses a positional mod id argument, exiting on garbage input.
func parseModID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		logger.Log.Fatalw("Invalid mod id", zap.String("arg", arg))
	}
	return id
}
