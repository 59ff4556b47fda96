package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// DefaultAPIURL is used when MODWORKS_API_URL is not configured.
const DefaultAPIURL = "https://api.mod.works/v1"

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	APIURL          string `mapstructure:"MODWORKS_API_URL"`
	APIKey          string `mapstructure:"MODWORKS_API_KEY"`
	GameID          int64  `mapstructure:"MODWORKS_GAME_ID"`
	UserAgent       string `mapstructure:"USERAGENT"`
	InstallDir      string `mapstructure:"INSTALL_DIR"`
	CacheDir        string `mapstructure:"CACHE_DIR"`
	KeepOldVersions bool   `mapstructure:"KEEP_OLD_VERSIONS"`

	// Derived, not from env.
	DatabasePath  string `mapstructure:"-"`
	UserStatePath string `mapstructure:"-"`
	DownloadDir   string `mapstructure:"-"`
	StagingDir    string `mapstructure:"-"`
	ArchiveDir    string `mapstructure:"-"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	// Bind environment variables automatically.
	viper.AutomaticEnv()

	for key, env := range map[string]string{
		"modworks_api_url":  "MODWORKS_API_URL",
		"modworks_api_key":  "MODWORKS_API_KEY",
		"modworks_game_id":  "MODWORKS_GAME_ID",
		"useragent":         "USERAGENT",
		"install_dir":       "INSTALL_DIR",
		"cache_dir":         "CACHE_DIR",
		"keep_old_versions": "KEEP_OLD_VERSIONS",
	} {
		if bindErr := viper.BindEnv(key, env); bindErr != nil {
			slog.Warn("Unable to bind env var", "env", env, "error", bindErr)
		}
	}

	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func processConfigDefaults(config *Config) {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.UserAgent == "" {
		config.UserAgent = "modworks-sdk/dev (unknown-user)"
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}

	// Viper doesn't handle bool defaults from env well without explicit
	// SetDefault, so the raw string is checked directly.
	keepOldStr := viper.GetString("KEEP_OLD_VERSIONS")
	if keepOldStr == "" {
		config.KeepOldVersions = false
	} else {
		keepOld, err := strconv.ParseBool(keepOldStr)
		if err != nil {
			slog.Warn("Invalid value for KEEP_OLD_VERSIONS, defaulting to false", "value", keepOldStr, "error", err)
			config.KeepOldVersions = false
		} else {
			config.KeepOldVersions = keepOld
		}
	}
}

func validateAndEnsureDirectories(config *Config) error {
	if config.APIKey == "" {
		slog.Error("MODWORKS_API_KEY is not set")
		return fmt.Errorf("MODWORKS_API_KEY is required")
	}
	if config.GameID <= 0 {
		slog.Error("MODWORKS_GAME_ID is not set")
		return fmt.Errorf("MODWORKS_GAME_ID is required")
	}
	if config.InstallDir == "" {
		slog.Error("INSTALL_DIR is not set")
		return fmt.Errorf("INSTALL_DIR is required")
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.InstallDir, ".modworks")
	}

	config.DownloadDir = filepath.Join(config.CacheDir, "downloads")
	config.StagingDir = filepath.Join(config.CacheDir, "staging")
	config.ArchiveDir = filepath.Join(config.CacheDir, "archive")
	config.DatabasePath = filepath.Join(config.CacheDir, "installs.db")
	config.UserStatePath = filepath.Join(config.CacheDir, "user.json")

	for _, dir := range []string{
		config.InstallDir,
		config.CacheDir,
		config.DownloadDir,
		config.StagingDir,
		config.ArchiveDir,
	} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			slog.Info("Directory does not exist, creating it", "path", dir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				slog.Error("Failed to create directory", "path", dir, "error", err)
				return err
			}
		} else if err != nil {
			slog.Error("Failed to check directory", "path", dir, "error", err)
			return err
		}
	}
	return nil
}
