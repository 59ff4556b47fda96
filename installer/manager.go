package installer

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"modworks/api"
	"modworks/db"
	"modworks/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Remote is what the pipeline needs from the API client: streaming a binary
// to disk and refreshing build metadata when a download locator expired.
type Remote interface {
	DownloadTo(url, dest string, resumeFrom int64) error
	GetModfile(modID, modfileID int64) (*api.Modfile, error)
}

// Journal records installs and uninstalls; db.Journal implements it. A nil
// journal disables bookkeeping.
type Journal interface {
	RecordInstall(build db.InstalledBuild) error
	RecordUninstall(modID int64) error
	ArchiveMoved(modID, modfileID int64, archivePath string) error
}

// Manager drives the per-build state machine:
// missing -> downloading -> downloaded -> verified -> installing -> installed.
type Manager struct {
	installRoot string
	downloadDir string
	stagingDir  string
	archiveDir  string
	keepOld     bool

	fs      storage.Storage
	remote  Remote
	journal Journal
	log     *zap.SugaredLogger

	// Notify, when set, receives pipeline progress notices.
	Notify func(Notice)

	mu       sync.Mutex
	inflight map[BuildKey]struct{}
}

// Options configures a Manager.
type Options struct {
	InstallRoot string
	DownloadDir string // completed archives and .download sidecars
	StagingDir  string // scratch extraction directories
	ArchiveDir  string // superseded archives, when KeepOldVersions is set
	KeepOld     bool
}

// NewManager returns a Manager. journal may be nil.
func NewManager(opts Options, fs storage.Storage, remote Remote, journal Journal, log *zap.SugaredLogger) *Manager {
	return &Manager{
		installRoot: opts.InstallRoot,
		downloadDir: opts.DownloadDir,
		stagingDir:  opts.StagingDir,
		archiveDir:  opts.ArchiveDir,
		keepOld:     opts.KeepOld,
		fs:          fs,
		remote:      remote,
		journal:     journal,
		log:         log,
		inflight:    make(map[BuildKey]struct{}),
	}
}

// NoticeKind classifies pipeline progress notices.
type NoticeKind int

const (
	NoticeDownloadStart NoticeKind = iota
	NoticeDownloaded
	NoticeInstalled
	NoticeSkipped
	NoticeDropped
	NoticeError
)

// Notice is one pipeline progress report.
type Notice struct {
	Kind NoticeKind
	Key  BuildKey
	Name string
	Err  error
}

func (m *Manager) notify(n Notice) {
	if m.Notify != nil {
		m.Notify(n)
	}
}

// ArchivePath is where the completed download for a build lives.
func (m *Manager) ArchivePath(k BuildKey) string {
	return filepath.Join(m.downloadDir, DirName(k)+".zip")
}

func (m *Manager) partialPath(k BuildKey) string {
	return m.ArchivePath(k) + ".download"
}

// InstallPath is the final install directory for a build.
func (m *Manager) InstallPath(k BuildKey) string {
	return filepath.Join(m.installRoot, DirName(k))
}

// Status probes the observable state of a build. A .download sidecar with
// no completed archive reads as partially downloaded, letting the caller
// choose between resuming and restarting.
func (m *Manager) Status(k BuildKey) Status {
	switch {
	case m.fs.DirectoryExists(m.InstallPath(k)):
		return StatusInstalled
	case m.fs.FileExists(m.ArchivePath(k)):
		return StatusDownloaded
	case m.fs.FileExists(m.partialPath(k)):
		return StatusPartiallyDownloaded
	default:
		return StatusMissing
	}
}

// Verify checks the downloaded archive against build metadata. The size
// comparison runs first; the hash is only computed when the size matches,
// so a doomed download never pays for hashing.
func (m *Manager) Verify(mf *api.Modfile) error {
	path := m.ArchivePath(Key(mf))
	size, err := m.fs.FileSize(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if size != mf.FileSize {
		return fmt.Errorf("%w: have %d bytes, expected %d", ErrSizeMismatch, size, mf.FileSize)
	}
	hash, err := m.fs.FileHashMD5(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if !strings.EqualFold(hash, mf.FileHash.MD5) {
		return fmt.Errorf("%w: have %s, expected %s", ErrHashMismatch, hash, mf.FileHash.MD5)
	}
	return nil
}

func (m *Manager) acquire(k BuildKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[k]; busy {
		return false
	}
	m.inflight[k] = struct{}{}
	return true
}

func (m *Manager) release(k BuildKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, k)
}

// Download fetches the build archive, resuming a partial download when a
// sidecar exists, then verifies it. Starting a download for a build that
// already has one in flight returns ErrDownloadInFlight and does nothing;
// different builds download independently.
func (m *Manager) Download(mf *api.Modfile) error {
	key := Key(mf)
	if !m.acquire(key) {
		return ErrDownloadInFlight
	}
	defer m.release(key)

	final := m.ArchivePath(key)
	if m.fs.FileExists(final) {
		if err := m.Verify(mf); err == nil {
			return nil
		}
		// Stale or damaged archive; redownload from scratch.
		if err := m.fs.DeleteFile(final); err != nil {
			return fmt.Errorf("failed to discard stale archive: %w", err)
		}
	}

	partial := m.partialPath(key)
	var resumeFrom int64
	if m.fs.FileExists(partial) {
		if size, err := m.fs.FileSize(partial); err == nil {
			resumeFrom = size
		}
	}

	m.notify(Notice{Kind: NoticeDownloadStart, Key: key, Name: mf.FileName})
	m.log.Infow("Downloading build",
		zap.Int64("mod_id", key.ModID), zap.Int64("modfile_id", key.ModfileID),
		zap.Int64("resume_from", resumeFrom))

	if err := m.remote.DownloadTo(mf.Download.BinaryURL, partial, resumeFrom); err != nil {
		// The sidecar stays behind; the next attempt resumes it.
		return fmt.Errorf("failed to download build %d/%d: %w", key.ModID, key.ModfileID, err)
	}
	if err := m.fs.MoveFile(partial, final); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}

	if err := m.Verify(mf); err != nil {
		_ = m.fs.DeleteFile(final)
		return err
	}
	m.notify(Notice{Kind: NoticeDownloaded, Key: key, Name: mf.FileName})
	return nil
}

// Install extracts the verified archive into a scratch directory, removes
// every other installed build of the same mod, then atomically moves the
// scratch directory into place. The install tree never observably holds a
// partial extraction; a crash mid-extraction leaves only scratch debris
// that the next run deletes and retries past.
func (m *Manager) Install(mf *api.Modfile) error {
	key := Key(mf)
	if err := m.Verify(mf); err != nil {
		return err
	}

	scratch := filepath.Join(m.stagingDir, uuid.NewString())
	if err := m.extractArchive(m.ArchivePath(key), scratch); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to extract build %d/%d: %w", key.ModID, key.ModfileID, err)
	}

	// One active build per mod: clear out every other build first. If that
	// fails the old version stays intact and the install aborts.
	if err := m.uninstallOthers(key); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to remove superseded build of mod %d: %w", key.ModID, err)
	}

	target := m.InstallPath(key)
	if err := m.fs.MoveDirectory(scratch, target); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to move build %d/%d into place: %w", key.ModID, key.ModfileID, err)
	}

	if m.journal != nil {
		err := m.journal.RecordInstall(db.InstalledBuild{
			ModID:     key.ModID,
			ModfileID: key.ModfileID,
			Version:   mf.Version,
			FileName:  mf.FileName,
			Path:      target,
		})
		if err != nil {
			m.log.Warnw("Failed to journal install",
				zap.Int64("mod_id", key.ModID), zap.Error(err))
		}
	}
	m.notify(Notice{Kind: NoticeInstalled, Key: key, Name: mf.FileName})
	m.log.Infow("Installed build",
		zap.Int64("mod_id", key.ModID), zap.Int64("modfile_id", key.ModfileID),
		zap.String("path", target))
	return nil
}

// RestoreFromArchive installs a build straight from a previously archived
// zip, as used by rollback. History rows do not retain the content hash, so
// only the archive structure is validated during extraction.
func (m *Manager) RestoreFromArchive(key BuildKey, archivePath, version, fileName string) error {
	if !m.fs.FileExists(archivePath) {
		return fmt.Errorf("%w: archive %q is gone", ErrUnreadable, archivePath)
	}

	scratch := filepath.Join(m.stagingDir, uuid.NewString())
	if err := m.extractArchive(archivePath, scratch); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to extract archived build %d/%d: %w", key.ModID, key.ModfileID, err)
	}

	if err := m.uninstallOthers(key); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to remove superseded build of mod %d: %w", key.ModID, err)
	}

	target := m.InstallPath(key)
	if err := m.fs.MoveDirectory(scratch, target); err != nil {
		_ = m.fs.DeleteDirectory(scratch)
		return fmt.Errorf("failed to move build %d/%d into place: %w", key.ModID, key.ModfileID, err)
	}

	if m.journal != nil {
		err := m.journal.RecordInstall(db.InstalledBuild{
			ModID:     key.ModID,
			ModfileID: key.ModfileID,
			Version:   version,
			FileName:  fileName,
			Path:      target,
		})
		if err != nil {
			m.log.Warnw("Failed to journal restore",
				zap.Int64("mod_id", key.ModID), zap.Error(err))
		}
	}
	m.notify(Notice{Kind: NoticeInstalled, Key: key, Name: fileName})
	m.log.Infow("Restored archived build",
		zap.Int64("mod_id", key.ModID), zap.Int64("modfile_id", key.ModfileID),
		zap.String("path", target))
	return nil
}

// uninstallOthers deletes the install directories of every other build of
// the same mod, archiving or discarding their downloaded zips. Drop-in
// directories are never touched.
func (m *Manager) uninstallOthers(keep BuildKey) error {
	records, err := m.Scan()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.DropIn() || rec.Key.ModID != keep.ModID || rec.Key == keep {
			continue
		}
		if err := m.fs.DeleteDirectory(rec.Path); err != nil {
			return fmt.Errorf("failed to delete %q: %w", rec.Path, err)
		}
		m.disposeArchive(rec.Key)
	}
	return nil
}

// disposeArchive archives or deletes a superseded build's zip.
func (m *Manager) disposeArchive(k BuildKey) {
	zipPath := m.ArchivePath(k)
	if !m.fs.FileExists(zipPath) {
		return
	}
	if m.keepOld {
		kept := filepath.Join(m.archiveDir, DirName(k)+".zip")
		if err := m.fs.MoveFile(zipPath, kept); err != nil {
			m.log.Warnw("Failed to archive superseded build",
				zap.String("from", zipPath), zap.Error(err))
			return
		}
		if m.journal != nil {
			if err := m.journal.ArchiveMoved(k.ModID, k.ModfileID, kept); err != nil {
				m.log.Warnw("Failed to journal archive location",
					zap.String("path", kept), zap.Error(err))
			}
		}
		return
	}
	if err := m.fs.DeleteFile(zipPath); err != nil {
		m.log.Warnw("Failed to remove superseded archive",
			zap.String("path", zipPath), zap.Error(err))
	}
}

// Uninstall removes every installed build of a mod. Drop-ins are untouched.
func (m *Manager) Uninstall(modID int64) error {
	records, err := m.Scan()
	if err != nil {
		return err
	}
	removed := false
	for _, rec := range records {
		if rec.DropIn() || rec.Key.ModID != modID {
			continue
		}
		if err := m.fs.DeleteDirectory(rec.Path); err != nil {
			return fmt.Errorf("failed to uninstall mod %d: %w", modID, err)
		}
		m.disposeArchive(rec.Key)
		removed = true
	}
	if removed && m.journal != nil {
		if err := m.journal.RecordUninstall(modID); err != nil {
			m.log.Warnw("Failed to journal uninstall",
				zap.Int64("mod_id", modID), zap.Error(err))
		}
	}
	return nil
}

// DiscardDownloads deletes every downloaded archive and sidecar for a mod.
// Builds that were never installed leave no journal record, so their zips
// are only reachable by name here; used when a mod is permanently deleted
// server-side.
func (m *Manager) DiscardDownloads(modID int64) {
	files, err := m.fs.ListFiles(m.downloadDir, fmt.Sprintf("%d_*.zip*", modID), false)
	if err != nil {
		m.log.Warnw("Failed to list download directory",
			zap.Int64("mod_id", modID), zap.Error(err))
		return
	}
	for _, f := range files {
		if err := m.fs.DeleteFile(f); err != nil {
			m.log.Warnw("Failed to discard download",
				zap.String("path", f), zap.Error(err))
		}
	}
}

// DropStalePartials deletes every .download sidecar in the download
// directory. Used on upgrade, when sidecars written by an older version
// cannot be trusted to resume; completed archives are kept.
func (m *Manager) DropStalePartials() {
	partials, err := m.fs.ListFiles(m.downloadDir, "*.download", false)
	if err != nil {
		m.log.Warnw("Failed to list download directory", zap.Error(err))
		return
	}
	for _, p := range partials {
		if err := m.fs.DeleteFile(p); err != nil {
			m.log.Warnw("Failed to drop stale partial download",
				zap.String("path", p), zap.Error(err))
		}
	}
}

// CleanStaging removes leftover scratch directories from interrupted runs.
func (m *Manager) CleanStaging() {
	dirs, err := m.fs.ListDirectories(m.stagingDir)
	if err != nil {
		m.log.Warnw("Failed to list staging directory", zap.Error(err))
		return
	}
	for _, dir := range dirs {
		if err := m.fs.DeleteDirectory(dir); err != nil {
			m.log.Warnw("Failed to clean staging debris",
				zap.String("path", dir), zap.Error(err))
		}
	}
}
