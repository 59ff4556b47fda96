package db

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	gdb, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewJournal(gdb)
}

func TestRecordInstallUpsertsAndKeepsHistory(t *testing.T) {
	j := openTestJournal(t)

	first := InstalledBuild{ModID: 7, ModfileID: 100, Name: "Mod", Version: "1.0", FileName: "mod-1.0.zip", Path: "/game/7_100"}
	if err := j.RecordInstall(first); err != nil {
		t.Fatalf("RecordInstall failed: %v", err)
	}
	// The manager reports the archive location before the next install
	// displaces this row.
	if err := j.ArchiveMoved(7, 100, "/archive/7_100.zip"); err != nil {
		t.Fatalf("ArchiveMoved failed: %v", err)
	}

	second := InstalledBuild{ModID: 7, ModfileID: 200, Name: "Mod", Version: "2.0", FileName: "mod-2.0.zip", Path: "/game/7_200"}
	if err := j.RecordInstall(second); err != nil {
		t.Fatalf("RecordInstall failed: %v", err)
	}

	current, err := j.Current(7)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current == nil || current.ModfileID != 200 || current.Version != "2.0" {
		t.Fatalf("current = %+v, want build 200", current)
	}
	if current.ArchivePath != "" {
		t.Errorf("fresh install should not inherit the old archive path, got %q", current.ArchivePath)
	}

	previous, err := j.PreviousBuild(7)
	if err != nil {
		t.Fatalf("PreviousBuild failed: %v", err)
	}
	if previous.ModfileID != 100 || previous.Version != "1.0" {
		t.Errorf("previous = %+v, want build 100", previous)
	}
	if previous.ArchivePath != "/archive/7_100.zip" {
		t.Errorf("history lost the archive path: %q", previous.ArchivePath)
	}
}

func TestRecordInstallSameBuildNoHistory(t *testing.T) {
	j := openTestJournal(t)

	build := InstalledBuild{ModID: 3, ModfileID: 50, Version: "1.0", FileName: "a.zip", Path: "/game/3_50"}
	if err := j.RecordInstall(build); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordInstall(build); err != nil {
		t.Fatal(err)
	}

	if _, err := j.PreviousBuild(3); !errors.Is(err, ErrNoHistory) {
		t.Errorf("reinstalling the same build must not create history, got %v", err)
	}
}

func TestRecordUninstallMovesRowToHistory(t *testing.T) {
	j := openTestJournal(t)

	build := InstalledBuild{ModID: 5, ModfileID: 80, Version: "1.2", FileName: "b.zip", Path: "/game/5_80"}
	if err := j.RecordInstall(build); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordUninstall(5); err != nil {
		t.Fatalf("RecordUninstall failed: %v", err)
	}

	current, err := j.Current(5)
	if err != nil {
		t.Fatal(err)
	}
	if current != nil {
		t.Errorf("expected no current row after uninstall, got %+v", current)
	}

	previous, err := j.PreviousBuild(5)
	if err != nil {
		t.Fatalf("PreviousBuild failed: %v", err)
	}
	if previous.ModfileID != 80 {
		t.Errorf("previous = %+v, want build 80", previous)
	}
}

func TestRecordUninstallUnknownModIsNoop(t *testing.T) {
	j := openTestJournal(t)
	if err := j.RecordUninstall(999); err != nil {
		t.Errorf("uninstalling an unknown mod should be a no-op, got %v", err)
	}
}

func TestDeleteHistoryConsumesRollbackRow(t *testing.T) {
	j := openTestJournal(t)

	if err := j.RecordInstall(InstalledBuild{ModID: 9, ModfileID: 1, Version: "1.0", FileName: "c.zip", Path: "/game/9_1"}); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordInstall(InstalledBuild{ModID: 9, ModfileID: 2, Version: "2.0", FileName: "d.zip", Path: "/game/9_2"}); err != nil {
		t.Fatal(err)
	}

	previous, err := j.PreviousBuild(9)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.DeleteHistory(previous); err != nil {
		t.Fatalf("DeleteHistory failed: %v", err)
	}
	if _, err := j.PreviousBuild(9); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory after consuming the row, got %v", err)
	}
}

func TestAllOrdersByModID(t *testing.T) {
	j := openTestJournal(t)

	for _, modID := range []int64{4, 2, 8} {
		build := InstalledBuild{ModID: modID, ModfileID: modID * 10, Version: "1.0", FileName: "x.zip", Path: "/game/x"}
		if err := j.RecordInstall(build); err != nil {
			t.Fatal(err)
		}
	}

	builds, err := j.All()
	if err != nil {
		t.Fatal(err)
	}
	var got []int64
	for _, b := range builds {
		got = append(got, b.ModID)
	}
	want := []int64{2, 4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
