// Package user holds the device-local session state: the OAuth token, the
// enabled and subscribed mod sets, and subscription actions queued while
// offline. State is explicitly loaded from and saved to disk; it must be
// loaded before any authenticated operation.
package user

import (
	"encoding/json"
	"fmt"

	"modworks/storage"

	"github.com/google/uuid"
)

// TokenState describes the authentication state. Exactly one holds at any
// time: no token stored, a token the server still accepts, or a token the
// server has rejected.
type TokenState int

const (
	NoToken TokenState = iota
	ValidToken
	RejectedToken
)

func (s TokenState) String() string {
	switch s {
	case ValidToken:
		return "valid"
	case RejectedToken:
		return "rejected"
	default:
		return "none"
	}
}

// Local is the persisted local user state.
type Local struct {
	// Version of the tool that last wrote this state; drives one-time
	// migration steps on upgrade.
	LastRunVersion string `json:"last_run_version"`

	OAuthToken    string `json:"oauth_token"`
	TokenRejected bool   `json:"token_rejected"`

	EnabledModIDs    []int64 `json:"enabled_mod_ids"`
	SubscribedModIDs []int64 `json:"subscribed_mod_ids"`

	// Subscription changes made while offline, replayed on the next sync.
	QueuedSubscribes   []int64 `json:"queued_subscribes"`
	QueuedUnsubscribes []int64 `json:"queued_unsubscribes"`
}

// Load reads the local user state from path. A missing or unreadable file
// yields a fresh zero state, not an error.
func Load(fs storage.Storage, path string) *Local {
	var u Local
	data, err := fs.ReadFile(path)
	if err != nil {
		return &u
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return &Local{}
	}
	return &u
}

// Save persists the state atomically.
func (u *Local) Save(fs storage.Storage, path string) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user state: %w", err)
	}
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := fs.WriteFile(tmp, data); err != nil {
		return fmt.Errorf("failed to write user state: %w", err)
	}
	if err := fs.MoveFile(tmp, path); err != nil {
		_ = fs.DeleteFile(tmp)
		return fmt.Errorf("failed to commit user state: %w", err)
	}
	return nil
}

// TokenState derives the authentication state.
func (u *Local) TokenState() TokenState {
	switch {
	case u.OAuthToken == "":
		return NoToken
	case u.TokenRejected:
		return RejectedToken
	default:
		return ValidToken
	}
}

// SetToken installs a fresh token and clears any rejection.
func (u *Local) SetToken(token string) {
	u.OAuthToken = token
	u.TokenRejected = false
}

// RejectToken records that the server refused the stored token.
func (u *Local) RejectToken() {
	if u.OAuthToken != "" {
		u.TokenRejected = true
	}
}

// ClearToken forgets the token entirely.
func (u *Local) ClearToken() {
	u.OAuthToken = ""
	u.TokenRejected = false
}

// IsSubscribed reports whether the mod appears in the subscription list.
func (u *Local) IsSubscribed(modID int64) bool {
	for _, id := range u.SubscribedModIDs {
		if id == modID {
			return true
		}
	}
	return false
}

// SubscribedIDs returns a deduplicated copy of the subscription list. The
// raw list is transiently a multiset while event folds are in flight;
// callers needing set semantics use this.
func (u *Local) SubscribedIDs() []int64 {
	seen := make(map[int64]struct{}, len(u.SubscribedModIDs))
	out := make([]int64, 0, len(u.SubscribedModIDs))
	for _, id := range u.SubscribedModIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// AppendSubscribed appends a mod id to the subscription list without
// deduplicating; the event fold relies on this being a plain append.
func (u *Local) AppendSubscribed(modID int64) {
	u.SubscribedModIDs = append(u.SubscribedModIDs, modID)
}

// RemoveSubscribed removes every occurrence of the mod id.
func (u *Local) RemoveSubscribed(modID int64) {
	out := u.SubscribedModIDs[:0]
	for _, id := range u.SubscribedModIDs {
		if id != modID {
			out = append(out, id)
		}
	}
	u.SubscribedModIDs = out
}

// QueueSubscribe records an optimistic subscribe to replay on next sync.
func (u *Local) QueueSubscribe(modID int64) {
	u.QueuedUnsubscribes = removeID(u.QueuedUnsubscribes, modID)
	if !containsID(u.QueuedSubscribes, modID) {
		u.QueuedSubscribes = append(u.QueuedSubscribes, modID)
	}
	if !u.IsSubscribed(modID) {
		u.AppendSubscribed(modID)
	}
}

// QueueUnsubscribe records an optimistic unsubscribe to replay on next sync.
func (u *Local) QueueUnsubscribe(modID int64) {
	u.QueuedSubscribes = removeID(u.QueuedSubscribes, modID)
	if !containsID(u.QueuedUnsubscribes, modID) {
		u.QueuedUnsubscribes = append(u.QueuedUnsubscribes, modID)
	}
	u.RemoveSubscribed(modID)
}

// ClearQueued drops the queued actions once they have been replayed.
func (u *Local) ClearQueued() {
	u.QueuedSubscribes = nil
	u.QueuedUnsubscribes = nil
}

// IsEnabled reports whether the mod is enabled for the game to load.
func (u *Local) IsEnabled(modID int64) bool {
	return containsID(u.EnabledModIDs, modID)
}

// EnableMod marks a mod as enabled for the game to load.
func (u *Local) EnableMod(modID int64) {
	if !containsID(u.EnabledModIDs, modID) {
		u.EnabledModIDs = append(u.EnabledModIDs, modID)
	}
}

// DisableMod removes a mod from the enabled set.
func (u *Local) DisableMod(modID int64) {
	u.EnabledModIDs = removeID(u.EnabledModIDs, modID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
