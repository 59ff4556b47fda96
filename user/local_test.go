package user

import (
	"testing"

	"modworks/storage"
)

func TestTokenStates(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		rejected bool
		expected TokenState
	}{
		{"no token", "", false, NoToken},
		{"valid token", "abc", false, ValidToken},
		{"rejected token", "abc", true, RejectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Local{OAuthToken: tt.token, TokenRejected: tt.rejected}
			if got := u.TokenState(); got != tt.expected {
				t.Errorf("TokenState() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRejectTokenWithoutTokenStaysNone(t *testing.T) {
	var u Local
	u.RejectToken()
	if u.TokenState() != NoToken {
		t.Errorf("rejecting an absent token must stay NoToken, got %v", u.TokenState())
	}
}

func TestSetTokenClearsRejection(t *testing.T) {
	u := Local{OAuthToken: "old", TokenRejected: true}
	u.SetToken("new")
	if u.TokenState() != ValidToken {
		t.Errorf("fresh token should be valid, got %v", u.TokenState())
	}
}

func TestSubscribedIDsDeduplicates(t *testing.T) {
	u := Local{SubscribedModIDs: []int64{1, 2, 1, 3, 2}}
	ids := u.SubscribedIDs()
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	for i, want := range []int64{1, 2, 3} {
		if ids[i] != want {
			t.Errorf("ids[%d] = %d, want %d (first-occurrence order)", i, ids[i], want)
		}
	}
}

func TestQueueSubscribeUnsubscribeInteraction(t *testing.T) {
	var u Local

	u.QueueSubscribe(5)
	if !u.IsSubscribed(5) || len(u.QueuedSubscribes) != 1 {
		t.Fatal("queued subscribe should optimistically subscribe")
	}

	u.QueueUnsubscribe(5)
	if u.IsSubscribed(5) {
		t.Error("queued unsubscribe should optimistically unsubscribe")
	}
	if len(u.QueuedSubscribes) != 0 || len(u.QueuedUnsubscribes) != 1 {
		t.Errorf("queues not reconciled: sub=%v unsub=%v", u.QueuedSubscribes, u.QueuedUnsubscribes)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	fs := storage.NewMemory()
	path := "state/user_state.json"

	u := Load(fs, path)
	if u.TokenState() != NoToken {
		t.Fatal("fresh state should have no token")
	}

	u.SetToken("tok")
	u.AppendSubscribed(10)
	u.EnableMod(10)
	if err := u.Save(fs, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	again := Load(fs, path)
	if again.OAuthToken != "tok" || !again.IsSubscribed(10) || len(again.EnabledModIDs) != 1 {
		t.Errorf("round trip lost state: %+v", again)
	}
}

func TestLoadCorruptStateYieldsFresh(t *testing.T) {
	fs := storage.NewMemory()
	path := "state/user_state.json"
	if err := fs.WriteFile(path, []byte("]]garbage")); err != nil {
		t.Fatal(err)
	}
	u := Load(fs, path)
	if u.TokenState() != NoToken || len(u.SubscribedModIDs) != 0 {
		t.Errorf("corrupt state should load fresh, got %+v", u)
	}
}
