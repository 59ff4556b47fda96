package db

import (
	"gorm.io/gorm"
)

// InstalledBuild is the journal row for a currently installed build. The
// authoritative installed set remains the directory naming convention under
// the install root; this table is bookkeeping that lets status and rollback
// answer questions without re-fetching mod metadata.
type InstalledBuild struct {
	gorm.Model
	ModID       int64 `gorm:"uniqueIndex"` // one active build per mod
	ModfileID   int64
	Name        string // mod name at install time
	Version     string // build version string
	FileName    string // archive file name
	Path        string // install directory
	ArchivePath string // where the superseded zip was kept, empty if deleted
}

// BuildHistory records a superseded or uninstalled build.
type BuildHistory struct {
	gorm.Model
	ModID       int64 `gorm:"index"`
	ModfileID   int64
	Version     string
	FileName    string
	ArchivePath string // where the archive was kept, empty if deleted
}
