package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitLoggerHonorsLogFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	t.Setenv("MODWORKS_LOG_FILE", path)
	t.Setenv("MODWORKS_LOG_LEVEL", "warn")

	InitLogger()
	defer Sync()

	if Log == nil || ZapLogger == nil {
		t.Fatal("logger globals not initialized")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created at %s: %v", path, err)
	}

	Log.Infow("below the configured level")
	Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("info line written despite warn level: %q", data)
	}
}
