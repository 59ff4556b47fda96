package cache

import (
	"testing"
	"time"

	"modworks/api"
	"modworks/storage"

	"go.uber.org/zap"
)

func newTestStore() (*Store, *storage.Memory) {
	fs := storage.NewMemory()
	return New("cache", fs, zap.NewNop().Sugar()), fs
}

func TestModProfileRoundTrip(t *testing.T) {
	store, _ := newTestStore()

	profile := &api.ModProfile{ID: 42, GameID: 7, Name: "Example", NameID: "example"}
	if err := store.SaveModProfile(profile); err != nil {
		t.Fatalf("SaveModProfile failed: %v", err)
	}

	got, ok := store.LoadModProfile(42)
	if !ok {
		t.Fatal("expected cached profile")
	}
	if got.Name != "Example" || got.GameID != 7 {
		t.Errorf("unexpected profile: %+v", got)
	}

	if _, ok := store.LoadModProfile(43); ok {
		t.Error("expected miss for unknown mod id")
	}
}

func TestSaveModProfileRejectsNullID(t *testing.T) {
	store, _ := newTestStore()
	if err := store.SaveModProfile(&api.ModProfile{ID: api.NullID}); err == nil {
		t.Fatal("expected error for null id")
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	store, fs := newTestStore()

	if err := store.SaveModProfile(&api.ModProfile{ID: 5, Name: "ok"}); err != nil {
		t.Fatal(err)
	}
	path := "cache/mods/5/profile.json"
	if err := fs.WriteFile(path, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.LoadModProfile(5); ok {
		t.Fatal("corrupt entry must read as absent")
	}
	if fs.FileExists(path) {
		t.Error("corrupt entry should be dropped from disk")
	}
}

func TestAtomicSaveLeavesNoTempFiles(t *testing.T) {
	store, fs := newTestStore()
	if err := store.SaveModProfile(&api.ModProfile{ID: 9, Name: "n"}); err != nil {
		t.Fatal(err)
	}
	leftovers, err := fs.ListFiles("cache", "*.tmp", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStatsExpiry(t *testing.T) {
	store, _ := newTestStore()
	now := time.Unix(1_700_000_000, 0)

	stats := &api.ModStats{ModID: 3, Downloads: 10, DateExpires: now.Unix() + 60}
	if err := store.SaveModStats(stats); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.LoadModStats(3, now); !ok {
		t.Error("expected fresh stats to be present")
	}
	if _, ok := store.LoadModStats(3, now.Add(2*time.Minute)); ok {
		t.Error("expected expired stats to read as absent")
	}
}

func TestImageFileNameMismatchIsAMiss(t *testing.T) {
	store, _ := newTestStore()

	oldLocator := api.ImageLocator{FileName: "logo_v1.png", Original: "https://img/logo_v1.png"}
	if err := store.SaveImage(11, "original", oldLocator, []byte("png-bytes")); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.LoadImage(11, "original", oldLocator); !ok {
		t.Fatal("expected hit for matching file name")
	}

	// The server replaced the logo: same mod, new file name.
	newLocator := api.ImageLocator{FileName: "logo_v2.png", Original: "https://img/logo_v2.png"}
	if _, ok := store.LoadImage(11, "original", newLocator); ok {
		t.Error("expected miss when locator file name changed")
	}
}

func TestDeleteModPurgesEverything(t *testing.T) {
	store, fs := newTestStore()

	if err := store.SaveModProfile(&api.ModProfile{ID: 8, Name: "m"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveModfile(&api.Modfile{ID: 80, ModID: 8}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveModStats(&api.ModStats{ModID: 8, DateExpires: 1 << 40}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveModTeam(8, []api.TeamMember{{ID: 1, User: api.UserProfile{Username: "u"}}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveImage(8, "thumb", api.ImageLocator{FileName: "a.png"}, []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteMod(8); err != nil {
		t.Fatalf("DeleteMod failed: %v", err)
	}

	if _, ok := store.LoadModProfile(8); ok {
		t.Error("profile survived purge")
	}
	if _, ok := store.LoadModfile(8); ok {
		t.Error("modfile survived purge")
	}
	if _, ok := store.LoadModTeam(8); ok {
		t.Error("team survived purge")
	}
	if fs.DirectoryExists("cache/mods/8") {
		t.Error("mod cache directory survived purge")
	}

	// Purging an absent mod is a no-op.
	if err := store.DeleteMod(1234); err != nil {
		t.Errorf("DeleteMod on absent mod returned %v", err)
	}
}

func TestLoadAllModProfiles(t *testing.T) {
	store, _ := newTestStore()
	for _, id := range []int64{1, 2, 3} {
		if err := store.SaveModProfile(&api.ModProfile{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	profiles := store.LoadAllModProfiles()
	if len(profiles) != 3 {
		t.Fatalf("got %d profiles, want 3", len(profiles))
	}
}

func TestWatermarkRoundTrip(t *testing.T) {
	store, _ := newTestStore()

	if w := store.LoadWatermark(); w.LastModEventID != 0 {
		t.Fatalf("expected zero watermark, got %+v", w)
	}
	if err := store.SaveWatermark(Watermark{LastModEventID: 17, LastUserEventID: 4}); err != nil {
		t.Fatal(err)
	}
	w := store.LoadWatermark()
	if w.LastModEventID != 17 || w.LastUserEventID != 4 {
		t.Errorf("unexpected watermark: %+v", w)
	}
}

func TestModTeamRoundTrip(t *testing.T) {
	store, _ := newTestStore()
	team := []api.TeamMember{{ID: 3, User: api.UserProfile{ID: 9, Username: "lead"}, Position: "Lead"}}

	if err := store.SaveModTeam(5, team); err != nil {
		t.Fatal(err)
	}
	got, ok := store.LoadModTeam(5)
	if !ok || len(got) != 1 || got[0].User.Username != "lead" {
		t.Errorf("LoadModTeam = %v, %v", got, ok)
	}
	if _, ok := store.LoadModTeam(6); ok {
		t.Error("unexpected hit for uncached mod")
	}
}
