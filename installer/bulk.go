package installer

import (
	"errors"
	"time"

	"modworks/api"

	"go.uber.org/zap"
)

// Result summarizes one bulk reconciliation.
type Result struct {
	Installed []BuildKey // installed by this pass or already in place
	Dropped   []BuildKey // builds skipped after an unrecoverable failure
}

// AssertDownloadedAndInstalled reconciles the install tree against the
// desired build list. Builds already installed are skipped; builds already
// downloaded and valid install without touching the network; builds with an
// expired download locator get fresh metadata first. Builds whose metadata
// cannot be refreshed are dropped with a warning, not a batch failure.
// Downloads and installs run serially, one build at a time, so large
// archive extractions never compete for bandwidth and disk.
func (m *Manager) AssertDownloadedAndInstalled(builds []api.Modfile, now time.Time) Result {
	var res Result
	for i := range builds {
		mf := builds[i]
		key := Key(&mf)

		if m.Status(key) == StatusInstalled {
			m.notify(Notice{Kind: NoticeSkipped, Key: key, Name: mf.FileName})
			res.Installed = append(res.Installed, key)
			continue
		}

		if m.Status(key) == StatusDownloaded && m.Verify(&mf) == nil {
			if err := m.Install(&mf); err != nil {
				m.drop(&res, key, mf.FileName, err)
				continue
			}
			res.Installed = append(res.Installed, key)
			continue
		}

		if locatorExpired(&mf, now) {
			fresh, err := m.remote.GetModfile(mf.ModID, mf.ID)
			if err != nil {
				m.log.Warnw("Dropping build: could not refresh expired download locator",
					zap.Int64("mod_id", mf.ModID), zap.Int64("modfile_id", mf.ID), zap.Error(err))
				m.notify(Notice{Kind: NoticeDropped, Key: key, Name: mf.FileName, Err: err})
				res.Dropped = append(res.Dropped, key)
				continue
			}
			mf = *fresh
		}

		if err := m.Download(&mf); err != nil {
			if errors.Is(err, ErrDownloadInFlight) {
				// Another caller owns this build; neither installed nor dropped.
				m.notify(Notice{Kind: NoticeSkipped, Key: key, Name: mf.FileName})
				continue
			}
			m.drop(&res, key, mf.FileName, err)
			continue
		}
		if err := m.Install(&mf); err != nil {
			m.drop(&res, key, mf.FileName, err)
			continue
		}
		res.Installed = append(res.Installed, key)
	}
	return res
}

func (m *Manager) drop(res *Result, key BuildKey, name string, err error) {
	m.log.Warnw("Dropping build after pipeline failure",
		zap.Int64("mod_id", key.ModID), zap.Int64("modfile_id", key.ModfileID), zap.Error(err))
	m.notify(Notice{Kind: NoticeError, Key: key, Name: name, Err: err})
	res.Dropped = append(res.Dropped, key)
}

// locatorExpired reports whether the signed download URL has lapsed.
func locatorExpired(mf *api.Modfile, now time.Time) bool {
	return mf.Download.DateExpires > 0 && now.Unix() >= mf.Download.DateExpires
}
