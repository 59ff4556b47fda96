package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoHistory is returned by PreviousBuild when a mod has no recorded
// earlier build to roll back to.
var ErrNoHistory = errors.New("no build history for mod")

// Journal records build installs and uninstalls in the local database.
type Journal struct {
	db *gorm.DB
}

// NewJournal wraps an open database.
func NewJournal(gdb *gorm.DB) *Journal {
	return &Journal{db: gdb}
}

// RecordInstall upserts the current build row for a mod, moving any
// previous row into history first.
func (j *Journal) RecordInstall(build InstalledBuild) error {
	var existing InstalledBuild
	result := j.db.Where("mod_id = ?", build.ModID).First(&existing)
	switch {
	case result.Error == nil:
		if existing.ModfileID != build.ModfileID {
			history := BuildHistory{
				ModID:       existing.ModID,
				ModfileID:   existing.ModfileID,
				Version:     existing.Version,
				FileName:    existing.FileName,
				ArchivePath: existing.ArchivePath,
			}
			if err := j.db.Create(&history).Error; err != nil {
				return fmt.Errorf("failed to save build history: %w", err)
			}
		}
		existing.ModfileID = build.ModfileID
		existing.Name = build.Name
		existing.Version = build.Version
		existing.FileName = build.FileName
		existing.Path = build.Path
		existing.ArchivePath = build.ArchivePath
		if err := j.db.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update install record: %w", err)
		}
		return nil
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		if err := j.db.Create(&build).Error; err != nil {
			return fmt.Errorf("failed to create install record: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to query install record: %w", result.Error)
	}
}

// RecordUninstall moves the current build row for a mod into history.
func (j *Journal) RecordUninstall(modID int64) error {
	var existing InstalledBuild
	result := j.db.Where("mod_id = ?", modID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("failed to query install record: %w", result.Error)
	}

	history := BuildHistory{
		ModID:       existing.ModID,
		ModfileID:   existing.ModfileID,
		Version:     existing.Version,
		FileName:    existing.FileName,
		ArchivePath: existing.ArchivePath,
	}
	if err := j.db.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to save build history: %w", err)
	}
	if err := j.db.Delete(&existing).Error; err != nil {
		return fmt.Errorf("failed to delete install record: %w", err)
	}
	return nil
}

// ArchiveMoved records where a superseded build's zip was kept, so rollback
// can find it later. The build may still be the current row or already in
// history depending on whether an install or an uninstall displaced it.
func (j *Journal) ArchiveMoved(modID, modfileID int64, archivePath string) error {
	err := j.db.Model(&InstalledBuild{}).
		Where("mod_id = ? AND modfile_id = ?", modID, modfileID).
		Update("archive_path", archivePath).Error
	if err != nil {
		return fmt.Errorf("failed to update install record archive path: %w", err)
	}
	err = j.db.Model(&BuildHistory{}).
		Where("mod_id = ? AND modfile_id = ?", modID, modfileID).
		Update("archive_path", archivePath).Error
	if err != nil {
		return fmt.Errorf("failed to update build history archive path: %w", err)
	}
	return nil
}

// DeleteHistory removes a consumed history row after a rollback restored it.
func (j *Journal) DeleteHistory(history *BuildHistory) error {
	if err := j.db.Delete(history).Error; err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	return nil
}

// Current returns the journal row for a mod's installed build.
func (j *Journal) Current(modID int64) (*InstalledBuild, error) {
	var build InstalledBuild
	result := j.db.Where("mod_id = ?", modID).First(&build)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query install record: %w", result.Error)
	}
	return &build, nil
}

// All returns every current install row.
func (j *Journal) All() ([]InstalledBuild, error) {
	var builds []InstalledBuild
	if err := j.db.Order("mod_id").Find(&builds).Error; err != nil {
		return nil, fmt.Errorf("failed to list install records: %w", err)
	}
	return builds, nil
}

// PreviousBuild returns the most recent history row for a mod.
func (j *Journal) PreviousBuild(modID int64) (*BuildHistory, error) {
	var history BuildHistory
	result := j.db.Where("mod_id = ?", modID).Order("created_at DESC").First(&history)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoHistory
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query build history: %w", result.Error)
	}
	return &history, nil
}
