// Package events converts ordered server event batches into local cache
// mutations and subscriber notifications. A batch is processed to
// completion before the next one is accepted; reapplying the same batch is
// safe and reaches the same cache state.
package events

import (
	"fmt"

	"modworks/api"
	"modworks/cache"
	"modworks/fetch"
	"modworks/user"

	"go.uber.org/zap"
)

// ModGetter is the one remote call the engine issues: a batched, paginated
// fetch of mod profiles by id. Implemented by *api.Client.
type ModGetter interface {
	GetMods(f api.ModFilter, p fetch.Pagination) (fetch.Page[api.ModProfile], error)
}

// Hooks are the net-effect notifications delivered after a batch is
// reconciled. Nil hooks are skipped.
type Hooks struct {
	// OnAvailable fires for mods that became available in the batch.
	OnAvailable func(api.ModProfile)
	// OnEdited fires for mods whose profile changed.
	OnEdited func(api.ModProfile)
	// OnBuildChanged fires for mods whose active build changed.
	OnBuildChanged func(api.ModProfile)
	// OnUnavailable fires for mods removed from the catalog. Removed mods
	// are not necessarily gone forever, so no install cleanup happens here.
	OnUnavailable func(modID int64)
	// OnDeleted fires for mods that are permanently gone.
	OnDeleted func(modID int64)
	// OnSubscriptionsChanged fires after a user event batch touched the
	// subscription list.
	OnSubscriptionsChanged func()
}

// Engine is the event reconciliation state machine.
type Engine struct {
	mods  ModGetter
	cache *cache.Store
	hooks Hooks
	log   *zap.SugaredLogger
}

// New returns an Engine writing through to the given cache store.
func New(mods ModGetter, store *cache.Store, hooks Hooks, log *zap.SugaredLogger) *Engine {
	return &Engine{mods: mods, cache: store, hooks: hooks, log: log}
}

// fetchKind orders the fetch-group classifications by priority; a lower
// value wins when one mod id appears under several event types in a batch.
type fetchKind int

const (
	kindAvailable fetchKind = iota
	kindEdited
	kindBuildChanged
)

// batch is the partition of one ordered event batch.
type batch struct {
	fetchGroup map[int64]fetchKind // available/edited/build-changed, by priority
	fetchOrder []int64             // first-seen order, for the batched request
	removed    map[int64]struct{}
	deleted    map[int64]struct{}
}

// partition classifies an ordered event batch into the five id sets. An id
// appears in at most one of the three fetch classifications; when a mod was
// both added and edited within one batch it counts as newly available.
func partition(events []api.ModEvent) batch {
	b := batch{
		fetchGroup: make(map[int64]fetchKind),
		removed:    make(map[int64]struct{}),
		deleted:    make(map[int64]struct{}),
	}
	classify := func(id int64, kind fetchKind) {
		if prev, seen := b.fetchGroup[id]; seen {
			if kind < prev {
				b.fetchGroup[id] = kind
			}
			return
		}
		b.fetchGroup[id] = kind
		b.fetchOrder = append(b.fetchOrder, id)
	}
	for _, ev := range events {
		switch ev.EventType {
		case api.ModAvailable:
			classify(ev.ModID, kindAvailable)
			delete(b.removed, ev.ModID)
		case api.ModEdited:
			classify(ev.ModID, kindEdited)
		case api.ModfileChanged:
			classify(ev.ModID, kindBuildChanged)
		case api.ModUnavailable:
			b.removed[ev.ModID] = struct{}{}
		case api.ModDeleted:
			b.deleted[ev.ModID] = struct{}{}
		}
	}
	// A mod that was deleted in the same batch is not worth fetching.
	for id := range b.deleted {
		if _, ok := b.fetchGroup[id]; ok {
			delete(b.fetchGroup, id)
			b.fetchOrder = removeFromOrder(b.fetchOrder, id)
		}
		delete(b.removed, id)
	}
	return b
}

func removeFromOrder(order []int64, id int64) []int64 {
	out := order[:0]
	for _, v := range order {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ApplyModEvents reconciles one ordered batch of mod events. The union of
// ids needing a profile refresh is fetched in a single batched, paginated
// call; removed and deleted ids purge the cache and fire their distinct
// notifications. A fetch failure surfaces without rolling back the
// classification; retrying the same batch is side-effect free.
func (e *Engine) ApplyModEvents(events []api.ModEvent) error {
	if len(events) == 0 {
		return nil
	}
	b := partition(events)

	if len(b.fetchOrder) > 0 {
		profiles, err := fetch.All(fetch.DefaultLimit, func(p fetch.Pagination) (fetch.Page[api.ModProfile], error) {
			return e.mods.GetMods(api.ModFilter{IDs: b.fetchOrder}, p)
		})
		if err != nil {
			return fmt.Errorf("failed to fetch %d updated mods: %w", len(b.fetchOrder), err)
		}

		if err := e.cache.SaveModProfiles(profiles); err != nil {
			e.log.Warnw("Some mod profiles could not be cached", zap.Error(err))
		}
		for i := range profiles {
			profile := profiles[i]
			switch b.fetchGroup[profile.ID] {
			case kindAvailable:
				if e.hooks.OnAvailable != nil {
					e.hooks.OnAvailable(profile)
				}
			case kindEdited:
				if e.hooks.OnEdited != nil {
					e.hooks.OnEdited(profile)
				}
			case kindBuildChanged:
				if e.hooks.OnBuildChanged != nil {
					e.hooks.OnBuildChanged(profile)
				}
			}
		}
	}

	for id := range b.removed {
		if err := e.cache.DeleteMod(id); err != nil {
			e.log.Warnw("Failed to purge cache for removed mod",
				zap.Int64("mod_id", id), zap.Error(err))
		}
		if e.hooks.OnUnavailable != nil {
			e.hooks.OnUnavailable(id)
		}
	}
	for id := range b.deleted {
		if err := e.cache.DeleteMod(id); err != nil {
			e.log.Warnw("Failed to purge cache for deleted mod",
				zap.Int64("mod_id", id), zap.Error(err))
		}
		if e.hooks.OnDeleted != nil {
			e.hooks.OnDeleted(id)
		}
	}
	return nil
}

// ApplyUserEvents folds one ordered batch of subscription events into the
// local subscription list: unsubscribed ids are removed, subscribed ids are
// appended without deduplication. Callers needing set semantics read
// user.Local.SubscribedIDs.
func (e *Engine) ApplyUserEvents(events []api.UserEvent, u *user.Local) {
	if len(events) == 0 {
		return
	}
	subscribed := make([]int64, 0)
	unsubscribed := make(map[int64]struct{})
	for _, ev := range events {
		switch ev.EventType {
		case api.UserSubscribe:
			subscribed = append(subscribed, ev.ModID)
		case api.UserUnsubscribe:
			unsubscribed[ev.ModID] = struct{}{}
		}
	}

	for id := range unsubscribed {
		u.RemoveSubscribed(id)
	}
	for _, id := range subscribed {
		u.AppendSubscribed(id)
	}

	if e.hooks.OnSubscriptionsChanged != nil {
		e.hooks.OnSubscriptionsChanged()
	}
}

// LatestEventID returns the highest event id in the batch; events are
// server-ordered so this is the resume watermark after a successful apply.
func LatestEventID(events []api.ModEvent) int64 {
	var max int64
	for _, ev := range events {
		if ev.ID > max {
			max = ev.ID
		}
	}
	return max
}

// LatestUserEventID is LatestEventID for the user event feed.
func LatestUserEventID(events []api.UserEvent) int64 {
	var max int64
	for _, ev := range events {
		if ev.ID > max {
			max = ev.ID
		}
	}
	return max
}
