// Package cache is the durable, keyed store for fetched server entities.
// Every entity lives as a JSON file under a per-mod directory; saves are
// atomic (write to a temp name, then move) so a crash never leaves a
// half-written entry observable. Reads never touch the network; a missing
// or corrupt file is a miss, not an error.
package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"modworks/api"
	"modworks/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gameFile    = "game.json"
	userFile    = "user.json"
	syncFile    = "sync.json"
	profileFile = "profile.json"
	modfileFile = "modfile.json"
	statsFile   = "stats.json"
	teamFile    = "team.json"
	modsDir     = "mods"
	imagesDir   = "images"
)

// Store maps typed server entities to on-disk locations beneath a root.
type Store struct {
	root string
	fs   storage.Storage
	log  *zap.SugaredLogger
}

// New returns a Store rooted at root.
func New(root string, fs storage.Storage, log *zap.SugaredLogger) *Store {
	return &Store{root: root, fs: fs, log: log}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) modDir(modID int64) string {
	return filepath.Join(s.root, modsDir, strconv.FormatInt(modID, 10))
}

// save writes value atomically: marshal, write to a temp name, move over
// the final name.
func (s *Store) save(path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %q: %w", path, err)
	}
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := s.fs.WriteFile(tmp, data); err != nil {
		return fmt.Errorf("failed to write cache entry %q: %w", path, err)
	}
	if err := s.fs.MoveFile(tmp, path); err != nil {
		_ = s.fs.DeleteFile(tmp)
		return fmt.Errorf("failed to commit cache entry %q: %w", path, err)
	}
	return nil
}

// load reads and unmarshals the entry at path. Absence and corruption both
// report a miss; corruption is logged and the entry dropped so the next
// save starts clean.
func (s *Store) load(path string, target interface{}) bool {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.log.Warnw("Dropping corrupt cache entry", zap.String("path", path), zap.Error(err))
		_ = s.fs.DeleteFile(path)
		return false
	}
	return true
}

// SaveGameProfile caches the game's catalog profile.
func (s *Store) SaveGameProfile(game *api.GameProfile) error {
	return s.save(filepath.Join(s.root, gameFile), game)
}

// LoadGameProfile returns the cached game profile, if present.
func (s *Store) LoadGameProfile() (*api.GameProfile, bool) {
	var game api.GameProfile
	if !s.load(filepath.Join(s.root, gameFile), &game) {
		return nil, false
	}
	return &game, true
}

// SaveUserProfile caches the authenticated user's profile.
func (s *Store) SaveUserProfile(user *api.UserProfile) error {
	return s.save(filepath.Join(s.root, userFile), user)
}

// LoadUserProfile returns the cached user profile, if present.
func (s *Store) LoadUserProfile() (*api.UserProfile, bool) {
	var user api.UserProfile
	if !s.load(filepath.Join(s.root, userFile), &user) {
		return nil, false
	}
	return &user, true
}

// SaveModProfile caches one mod profile snapshot, superseding any previous
// copy.
func (s *Store) SaveModProfile(profile *api.ModProfile) error {
	if profile.ID == api.NullID {
		return fmt.Errorf("refusing to cache mod profile without id")
	}
	return s.save(filepath.Join(s.modDir(profile.ID), profileFile), profile)
}

// SaveModProfiles persists a batch of profiles in one pass, continuing past
// individual failures and reporting the first one.
func (s *Store) SaveModProfiles(profiles []api.ModProfile) error {
	var firstErr error
	for i := range profiles {
		if err := s.SaveModProfile(&profiles[i]); err != nil {
			s.log.Warnw("Failed to cache mod profile",
				zap.Int64("mod_id", profiles[i].ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// LoadModProfile returns the cached profile for a mod, if present.
func (s *Store) LoadModProfile(modID int64) (*api.ModProfile, bool) {
	var profile api.ModProfile
	if !s.load(filepath.Join(s.modDir(modID), profileFile), &profile) {
		return nil, false
	}
	return &profile, true
}

// LoadAllModProfiles returns every cached mod profile.
func (s *Store) LoadAllModProfiles() []api.ModProfile {
	dirs, err := s.fs.ListDirectories(filepath.Join(s.root, modsDir))
	if err != nil {
		s.log.Warnw("Failed to list mod cache directories", zap.Error(err))
		return nil
	}
	var profiles []api.ModProfile
	for _, dir := range dirs {
		var profile api.ModProfile
		if s.load(filepath.Join(dir, profileFile), &profile) {
			profiles = append(profiles, profile)
		}
	}
	return profiles
}

// SaveModfile caches build metadata for a mod.
func (s *Store) SaveModfile(mf *api.Modfile) error {
	return s.save(filepath.Join(s.modDir(mf.ModID), modfileFile), mf)
}

// LoadModfile returns the cached build metadata for a mod, if present.
func (s *Store) LoadModfile(modID int64) (*api.Modfile, bool) {
	var mf api.Modfile
	if !s.load(filepath.Join(s.modDir(modID), modfileFile), &mf) {
		return nil, false
	}
	return &mf, true
}

// SaveModTeam caches the team member list for a mod.
func (s *Store) SaveModTeam(modID int64, team []api.TeamMember) error {
	return s.save(filepath.Join(s.modDir(modID), teamFile), team)
}

// LoadModTeam returns the cached team member list for a mod, if present.
func (s *Store) LoadModTeam(modID int64) ([]api.TeamMember, bool) {
	var team []api.TeamMember
	if !s.load(filepath.Join(s.modDir(modID), teamFile), &team) {
		return nil, false
	}
	return team, true
}

// SaveModStats caches the statistics snapshot for a mod.
func (s *Store) SaveModStats(stats *api.ModStats) error {
	return s.save(filepath.Join(s.modDir(stats.ModID), statsFile), stats)
}

// LoadModStats returns cached statistics for a mod. Statistics carry a
// server-assigned expiry; a snapshot past it is treated as absent even when
// still on disk.
func (s *Store) LoadModStats(modID int64, now time.Time) (*api.ModStats, bool) {
	var stats api.ModStats
	if !s.load(filepath.Join(s.modDir(modID), statsFile), &stats) {
		return nil, false
	}
	if stats.DateExpires > 0 && now.Unix() >= stats.DateExpires {
		return nil, false
	}
	return &stats, true
}

// ImagePath is the cache location for one image variant. The key embeds the
// locator's file name, so a server-side image replacement (new file name)
// is a natural cache miss that forces a re-download.
func (s *Store) ImagePath(ownerID int64, variant string, fileName string) string {
	return filepath.Join(s.modDir(ownerID), imagesDir, variant+"_"+fileName)
}

// SaveImage caches image bytes for the given locator and size variant.
func (s *Store) SaveImage(ownerID int64, variant string, locator api.ImageLocator, data []byte) error {
	if locator.FileName == "" {
		return fmt.Errorf("refusing to cache image without file name")
	}
	path := s.ImagePath(ownerID, variant, locator.FileName)
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := s.fs.WriteFile(tmp, data); err != nil {
		return fmt.Errorf("failed to write image %q: %w", path, err)
	}
	if err := s.fs.MoveFile(tmp, path); err != nil {
		_ = s.fs.DeleteFile(tmp)
		return fmt.Errorf("failed to commit image %q: %w", path, err)
	}
	return nil
}

// LoadImage returns the cached image for the locator's current file name.
// An image cached under a different file name is a miss.
func (s *Store) LoadImage(ownerID int64, variant string, locator api.ImageLocator) ([]byte, bool) {
	if locator.FileName == "" {
		return nil, false
	}
	data, err := s.fs.ReadFile(s.ImagePath(ownerID, variant, locator.FileName))
	if err != nil {
		return nil, false
	}
	return data, true
}

// DeleteMod removes every cached artifact for a mod: profile, build
// metadata, team, statistics and images.
func (s *Store) DeleteMod(modID int64) error {
	dir := s.modDir(modID)
	if !s.fs.DirectoryExists(dir) {
		return nil
	}
	if err := s.fs.DeleteDirectory(dir); err != nil {
		return fmt.Errorf("failed to purge cache for mod %d: %w", modID, err)
	}
	return nil
}

// Watermark records how far the event feeds have been consumed.
type Watermark struct {
	LastModEventID  int64 `json:"last_mod_event_id"`
	LastUserEventID int64 `json:"last_user_event_id"`
	LastSyncAt      int64 `json:"last_sync_at"`
}

// SaveWatermark persists the event feed resume point.
func (s *Store) SaveWatermark(w Watermark) error {
	return s.save(filepath.Join(s.root, syncFile), &w)
}

// LoadWatermark returns the event feed resume point; the zero value means
// no sync has completed yet and a full catalog fetch is required.
func (s *Store) LoadWatermark() Watermark {
	var w Watermark
	s.load(filepath.Join(s.root, syncFile), &w)
	return w
}
