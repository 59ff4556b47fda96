package sdk

import (
	"fmt"
	"time"

	"modworks/api"
	"modworks/db"
	"modworks/events"
	"modworks/fetch"
	"modworks/installer"
	"modworks/user"

	"go.uber.org/zap"
)

// SyncSummary reports what one sync pass did.
type SyncSummary struct {
	Seeded        bool // first sync; subscriptions were fetched wholesale
	UserEvents    int
	ModEvents     int
	Subscriptions int // subscription count after the pass
}

// Sync brings the local cache up to date with the server: queued
// subscription changes are replayed, then both event feeds are drained from
// the stored watermark and reconciled. The first sync on an empty watermark
// seeds the subscription list from the server instead of replaying history.
func (s *Session) Sync() (SyncSummary, error) {
	var summary SyncSummary
	wm := s.Cache.LoadWatermark()

	if s.User.TokenState() == user.ValidToken {
		s.replayQueued()
	}

	if s.User.TokenState() == user.ValidToken {
		if wm.LastUserEventID == 0 {
			if err := s.seedSubscriptions(); err != nil {
				return summary, err
			}
			summary.Seeded = true
			// The feed resumes after events that predate the seed.
			wm.LastUserEventID = s.latestUserEventID()
		} else {
			userEvents, err := fetch.All(fetch.DefaultLimit, func(p fetch.Pagination) (fetch.Page[api.UserEvent], error) {
				return s.Client.GetUserEvents(api.EventFilter{MinID: wm.LastUserEventID}, p)
			})
			if err != nil {
				if !s.authFailed(err) {
					return summary, fmt.Errorf("failed to fetch user events: %w", err)
				}
			} else {
				s.Events.ApplyUserEvents(userEvents, s.User)
				summary.UserEvents = len(userEvents)
				if latest := events.LatestUserEventID(userEvents); latest > wm.LastUserEventID {
					wm.LastUserEventID = latest
				}
			}
		}
	}

	if ids := s.User.SubscribedIDs(); len(ids) > 0 {
		modEvents, err := fetch.All(fetch.DefaultLimit, func(p fetch.Pagination) (fetch.Page[api.ModEvent], error) {
			return s.Client.GetModEvents(api.EventFilter{ModIDs: ids, MinID: wm.LastModEventID}, p)
		})
		if err != nil {
			return summary, fmt.Errorf("failed to fetch mod events: %w", err)
		}
		if err := s.Events.ApplyModEvents(modEvents); err != nil {
			return summary, err
		}
		summary.ModEvents = len(modEvents)
		if latest := events.LatestEventID(modEvents); latest > wm.LastModEventID {
			wm.LastModEventID = latest
		}
	}

	wm.LastSyncAt = time.Now().Unix()
	if err := s.Cache.SaveWatermark(wm); err != nil {
		return summary, err
	}
	if err := s.SaveState(); err != nil {
		return summary, err
	}
	summary.Subscriptions = len(s.User.SubscribedIDs())
	return summary, nil
}

// replayQueued delivers subscription changes made while offline or
// unauthenticated. Failed deliveries stay queued for the next sync.
func (s *Session) replayQueued() {
	var keptSubs, keptUnsubs []int64
	for _, modID := range s.User.QueuedSubscribes {
		if err := s.Client.SubscribeToMod(modID); err != nil {
			if s.authFailed(err) {
				return
			}
			s.log.Warnw("Failed to replay queued subscribe",
				zap.Int64("mod_id", modID), zap.Error(err))
			keptSubs = append(keptSubs, modID)
		}
	}
	for _, modID := range s.User.QueuedUnsubscribes {
		if err := s.Client.UnsubscribeFromMod(modID); err != nil {
			if s.authFailed(err) {
				return
			}
			s.log.Warnw("Failed to replay queued unsubscribe",
				zap.Int64("mod_id", modID), zap.Error(err))
			keptUnsubs = append(keptUnsubs, modID)
		}
	}
	s.User.ClearQueued()
	s.User.QueuedSubscribes = keptSubs
	s.User.QueuedUnsubscribes = keptUnsubs
}

// seedSubscriptions fetches the full subscription list and primes the cache
// with the subscribed mods' profiles.
func (s *Session) seedSubscriptions() error {
	mods, err := fetch.All(fetch.DefaultLimit, func(p fetch.Pagination) (fetch.Page[api.ModProfile], error) {
		return s.Client.GetUserMods(p)
	})
	if err != nil {
		if s.authFailed(err) {
			return nil
		}
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	if err := s.Cache.SaveModProfiles(mods); err != nil {
		return err
	}
	s.User.SubscribedModIDs = nil
	for _, mod := range mods {
		s.User.AppendSubscribed(mod.ID)
		s.User.EnableMod(mod.ID)
	}
	s.log.Infow("Seeded subscriptions from server", zap.Int("count", len(mods)))
	return nil
}

// latestUserEventID finds the newest user event id so a seeded sync does
// not replay the history that produced the seeded subscription list. The
// feed is ascending, so the whole log is drained and the max taken; one
// short page would see only the oldest events.
func (s *Session) latestUserEventID() int64 {
	evts, err := fetch.All(fetch.DefaultLimit, func(p fetch.Pagination) (fetch.Page[api.UserEvent], error) {
		return s.Client.GetUserEvents(api.EventFilter{}, p)
	})
	if err != nil {
		return 0
	}
	return events.LatestUserEventID(evts)
}

// UpdateInstalled converges the install directory to the enabled
// subscriptions using cached build metadata: everything already installed
// is skipped, valid downloads install without network traffic, the rest is
// downloaded, verified and installed.
func (s *Session) UpdateInstalled(now time.Time) installer.Result {
	var builds []api.Modfile
	for _, modID := range s.User.SubscribedIDs() {
		if !s.User.IsEnabled(modID) {
			continue
		}
		profile, ok := s.Cache.LoadModProfile(modID)
		if !ok {
			s.log.Warnw("Subscribed mod has no cached profile; sync first",
				zap.Int64("mod_id", modID))
			continue
		}
		if profile.Modfile.ID == api.NullID {
			s.log.Warnw("Subscribed mod has no build to install",
				zap.Int64("mod_id", modID), zap.String("name", profile.Name))
			continue
		}
		builds = append(builds, profile.Modfile)
	}
	return s.Installer.AssertDownloadedAndInstalled(builds, now)
}

// Rollback restores the most recent archived build of a mod and consumes
// its history row.
func (s *Session) Rollback(modID int64) (*db.BuildHistory, error) {
	previous, err := s.Journal.PreviousBuild(modID)
	if err != nil {
		return nil, err
	}
	if previous.ArchivePath == "" {
		return nil, fmt.Errorf("previous build %s of mod %d has no kept archive; set KEEP_OLD_VERSIONS", previous.Version, modID)
	}

	key := installer.BuildKey{ModID: previous.ModID, ModfileID: previous.ModfileID}
	if err := s.Installer.RestoreFromArchive(key, previous.ArchivePath, previous.Version, previous.FileName); err != nil {
		return nil, err
	}
	if err := s.Journal.DeleteHistory(previous); err != nil {
		s.log.Warnw("Failed to drop consumed history row",
			zap.Int64("mod_id", modID), zap.Error(err))
	}
	return previous, nil
}
