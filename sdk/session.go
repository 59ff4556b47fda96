// Package sdk wires the configuration, API client, metadata cache, event
// engine, download pipeline and submission engine into one session exposing
// the high-level operations the CLI drives.
package sdk

import (
	"fmt"
	"path/filepath"

	"modworks/api"
	"modworks/cache"
	"modworks/config"
	"modworks/db"
	"modworks/events"
	"modworks/installer"
	"modworks/storage"
	"modworks/submit"
	"modworks/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Version is stamped into the local user state after every run; a stamp
// mismatch on startup triggers the one-time migration steps.
const Version = "1.1.0"

// Session is one wired-up SDK instance bound to a game, an install
// directory and a local cache. It is not safe for concurrent use.
type Session struct {
	Config    config.Config
	Client    *api.Client
	Cache     *cache.Store
	User      *user.Local
	Journal   *db.Journal
	Installer *installer.Manager
	Events    *events.Engine
	Submitter *submit.Engine

	fs  storage.Storage
	gdb *gorm.DB
	log *zap.SugaredLogger
}

// Open builds a session from a loaded configuration. Leftover staging
// debris from interrupted runs is cleaned up here.
func Open(cfg config.Config, log *zap.SugaredLogger) (*Session, error) {
	fs := storage.NewOS()

	client, err := api.NewClient(cfg.APIURL, cfg.APIKey, cfg.GameID, cfg.UserAgent, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open install journal: %w", err)
	}
	journal := db.NewJournal(gdb)

	store := cache.New(filepath.Join(cfg.CacheDir, "metadata"), fs, log)

	usr := user.Load(fs, cfg.UserStatePath)
	if usr.TokenState() == user.ValidToken {
		client.SetToken(usr.OAuthToken)
	}

	mgr := installer.NewManager(installer.Options{
		InstallRoot: cfg.InstallDir,
		DownloadDir: cfg.DownloadDir,
		StagingDir:  cfg.StagingDir,
		ArchiveDir:  cfg.ArchiveDir,
		KeepOld:     cfg.KeepOldVersions,
	}, fs, client, journal, log)
	mgr.CleanStaging()

	if usr.LastRunVersion != Version {
		if usr.LastRunVersion != "" {
			log.Infow("Version changed since last run",
				zap.String("previous", usr.LastRunVersion), zap.String("current", Version))
			// Sidecars from an older version may not resume cleanly.
			mgr.DropStalePartials()
		}
		usr.LastRunVersion = Version
		if err := usr.Save(fs, cfg.UserStatePath); err != nil {
			log.Warnw("Failed to stamp run version", zap.Error(err))
		}
	}

	s := &Session{
		Config:    cfg,
		Client:    client,
		Cache:     store,
		User:      usr,
		Journal:   journal,
		Installer: mgr,
		Submitter: submit.NewEngine(client, fs, log),
		fs:        fs,
		gdb:       gdb,
		log:       log,
	}
	s.Events = events.New(client, store, events.Hooks{
		OnAvailable: func(p api.ModProfile) {
			log.Infow("Mod available", zap.Int64("mod_id", p.ID), zap.String("name", p.Name))
		},
		OnBuildChanged: func(p api.ModProfile) {
			log.Infow("Mod build changed", zap.Int64("mod_id", p.ID), zap.String("version", p.Modfile.Version))
		},
		OnUnavailable: func(modID int64) {
			// Unavailable mods can come back; installed files stay put.
			log.Warnw("Mod no longer available", zap.Int64("mod_id", modID))
		},
		OnDeleted: func(modID int64) { s.onModDeleted(modID) },
	}, log)
	return s, nil
}

// Close flushes and releases the install journal database.
func (s *Session) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to access journal database: %w", err)
	}
	return sqlDB.Close()
}

// SaveState persists the local user state.
func (s *Session) SaveState() error {
	return s.User.Save(s.fs, s.Config.UserStatePath)
}

// onModDeleted cleans up after a permanently deleted mod. Deleted is final,
// unlike unavailable, so the installed build goes too.
func (s *Session) onModDeleted(modID int64) {
	s.User.RemoveSubscribed(modID)
	s.User.DisableMod(modID)
	if err := s.Installer.Uninstall(modID); err != nil {
		s.log.Warnw("Failed to uninstall deleted mod",
			zap.Int64("mod_id", modID), zap.Error(err))
	}
	// Uninstall only disposes archives of installed builds; a downloaded
	// never-installed zip is orphaned without this.
	s.Installer.DiscardDownloads(modID)
}

// Login verifies the OAuth token against the /me endpoint and stores it on
// success along with the cached user profile.
func (s *Session) Login(token string) (*api.UserProfile, error) {
	s.Client.SetToken(token)
	profile, err := s.Client.GetAuthenticatedUser()
	if err != nil {
		s.Client.SetToken(s.User.OAuthToken)
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	s.User.SetToken(token)
	if err := s.Cache.SaveUserProfile(profile); err != nil {
		s.log.Warnw("Failed to cache user profile", zap.Error(err))
	}
	if err := s.SaveState(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Logout drops the stored token. Subscriptions and installs are untouched.
func (s *Session) Logout() error {
	s.User.ClearToken()
	s.Client.SetToken("")
	return s.SaveState()
}

// Subscribe adds a mod to the user's subscriptions. Without a usable token
// the action is queued and replayed on the next sync; the local state is
// updated optimistically either way.
func (s *Session) Subscribe(modID int64) error {
	s.User.EnableMod(modID)
	if s.User.TokenState() != user.ValidToken {
		s.User.QueueSubscribe(modID)
		return s.SaveState()
	}
	if err := s.Client.SubscribeToMod(modID); err != nil {
		if s.authFailed(err) {
			s.User.QueueSubscribe(modID)
			return s.SaveState()
		}
		return err
	}
	if !s.User.IsSubscribed(modID) {
		s.User.AppendSubscribed(modID)
	}
	return s.SaveState()
}

// Unsubscribe removes a mod from the user's subscriptions, queueing the
// action when it cannot be delivered now.
func (s *Session) Unsubscribe(modID int64) error {
	s.User.DisableMod(modID)
	if s.User.TokenState() != user.ValidToken {
		s.User.QueueUnsubscribe(modID)
		return s.SaveState()
	}
	if err := s.Client.UnsubscribeFromMod(modID); err != nil {
		if s.authFailed(err) {
			s.User.QueueUnsubscribe(modID)
			return s.SaveState()
		}
		return err
	}
	s.User.RemoveSubscribed(modID)
	return s.SaveState()
}

// authFailed marks the stored token rejected when the error is an auth
// rejection, and reports whether it was one.
func (s *Session) authFailed(err error) bool {
	apiErr, ok := api.AsError(err)
	if !ok || !apiErr.AuthRejected() {
		return false
	}
	s.User.RejectToken()
	s.log.Warnw("Stored token was rejected; re-authentication required")
	return true
}
