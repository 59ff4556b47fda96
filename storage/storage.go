// Package storage defines the file-system primitives the rest of the SDK is
// built on. Every component consumes the Storage interface; the OS
// implementation is the production backend and Memory backs tests.
package storage

// Storage is the narrow file/directory surface the SDK needs. Failures are
// reported as errors; callers treat them as recoverable signals and decide
// locally whether to log and continue or abort.
type Storage interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	DeleteFile(path string) error
	MoveFile(src, dst string) error
	FileExists(path string) bool
	FileSize(path string) (int64, error)
	FileHashMD5(path string) (string, error)

	// ListFiles returns the files under dir whose base name matches the
	// glob pattern; an empty pattern matches everything.
	ListFiles(dir, pattern string, recursive bool) ([]string, error)

	CreateDirectory(path string) error
	DeleteDirectory(path string) error
	MoveDirectory(src, dst string) error
	DirectoryExists(path string) bool
	ListDirectories(dir string) ([]string, error)
}
