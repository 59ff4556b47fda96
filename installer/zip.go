package installer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// extractArchive unpacks the zip at zipPath into dest through the storage
// abstraction. dest is expected to be a scratch directory; on any failure
// the caller deletes it and the final install location is never touched.
func (m *Manager) extractArchive(zipPath, dest string) error {
	data, err := m.fs.ReadFile(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	if err := m.fs.CreateDirectory(dest); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}
	for _, entry := range reader.File {
		rel, err := sanitizeEntryName(entry.Name)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		if entry.FileInfo().IsDir() {
			if err := m.fs.CreateDirectory(target); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", rel, err)
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%w: cannot open entry %q: %v", ErrCorruptArchive, rel, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%w: cannot read entry %q: %v", ErrCorruptArchive, rel, err)
		}
		if err := m.fs.WriteFile(target, content); err != nil {
			return fmt.Errorf("failed to extract %q: %w", rel, err)
		}
	}
	return nil
}

// sanitizeEntryName rejects absolute paths and parent-directory escapes.
func sanitizeEntryName(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: unsafe entry path %q", ErrCorruptArchive, name)
	}
	return cleaned, nil
}
