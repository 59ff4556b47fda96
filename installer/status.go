package installer

import "errors"

// Status is the observable download/install state of one build.
type Status int

const (
	StatusMissing Status = iota
	StatusPartiallyDownloaded
	StatusDownloaded
	StatusInstalled
)

func (s Status) String() string {
	switch s {
	case StatusPartiallyDownloaded:
		return "partially downloaded"
	case StatusDownloaded:
		return "downloaded"
	case StatusInstalled:
		return "installed"
	default:
		return "missing"
	}
}

// Verification and pipeline failures. Size and hash mismatches are distinct
// kinds; callers decide differently (a size mismatch usually means a
// truncated download, a hash mismatch a corrupted or tampered one).
var (
	ErrSizeMismatch   = errors.New("archive size does not match build metadata")
	ErrHashMismatch   = errors.New("archive hash does not match build metadata")
	ErrUnreadable     = errors.New("archive is unreadable")
	ErrCorruptArchive = errors.New("archive is not a valid zip")

	// ErrDownloadInFlight signals that a download for the same build pair
	// is already running; the duplicate request is a no-op.
	ErrDownloadInFlight = errors.New("download already in flight for this build")
)
