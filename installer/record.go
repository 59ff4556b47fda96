// Package installer turns verified remote builds into installed mod
// directories: resumable downloads, size and hash verification, extraction
// into a scratch directory and an atomic move into place.
package installer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"modworks/api"
)

// BuildKey identifies one (mod, build) pair.
type BuildKey struct {
	ModID     int64
	ModfileID int64
}

// Key returns the build key for a modfile.
func Key(mf *api.Modfile) BuildKey {
	return BuildKey{ModID: mf.ModID, ModfileID: mf.ID}
}

// DirName is the on-disk directory name for an installed build. The naming
// convention is the only durable record of what is installed.
func DirName(k BuildKey) string {
	return strconv.FormatInt(k.ModID, 10) + "_" + strconv.FormatInt(k.ModfileID, 10)
}

// ParseDirName parses an install directory name back into a build key. ok
// is false for directories that do not follow the convention; those are
// drop-in mods, tracked with NullID and never touched by cleanup logic.
func ParseDirName(name string) (BuildKey, bool) {
	left, right, found := strings.Cut(name, "_")
	if !found {
		return BuildKey{}, false
	}
	modID, err := strconv.ParseInt(left, 10, 64)
	if err != nil || modID <= 0 {
		return BuildKey{}, false
	}
	modfileID, err := strconv.ParseInt(right, 10, 64)
	if err != nil || modfileID <= 0 {
		return BuildKey{}, false
	}
	return BuildKey{ModID: modID, ModfileID: modfileID}, true
}

// Record is one directory found under the install root, parsed once at
// startup rather than re-parsing names on every query.
type Record struct {
	Key  BuildKey // zero-valued (NullID) for drop-ins
	Path string
}

// DropIn reports whether the record is a drop-in directory without a
// server-side identity.
func (r Record) DropIn() bool {
	return r.Key.ModID == api.NullID
}

// Scan parses the install root into structured records.
func (m *Manager) Scan() ([]Record, error) {
	dirs, err := m.fs.ListDirectories(m.installRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan install root: %w", err)
	}
	records := make([]Record, 0, len(dirs))
	for _, dir := range dirs {
		key, ok := ParseDirName(filepath.Base(dir))
		if !ok {
			records = append(records, Record{Path: dir})
			continue
		}
		records = append(records, Record{Key: key, Path: dir})
	}
	return records, nil
}
