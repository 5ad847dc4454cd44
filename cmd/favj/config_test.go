package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/store"
)

func TestSessionLogsStaleCacheRows(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "g"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := &appConfig{
		BaseDir:       base,
		FavoritesPath: filepath.Join(base, "fav.yaml"),
		DBPath:        store.DefaultPath(base),
		Events:        true,
		EventLevel:    report.LevelInfo,
	}
	s := openSession(cfg)
	if s.db == nil {
		t.Fatal("expected cache to open")
	}

	gone := filepath.Join(base, "g", "img_1.png")
	if err := os.WriteFile(gone, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.db.PutPath("g", "1", gone); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}
	os.Remove(gone)

	if path, ok := s.lib.ResolvePath("g", "1"); ok {
		t.Errorf("Expected unresolved favorite, got %q", path)
	}

	logPath := s.logger.Path()
	s.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read event log: %v", err)
	}
	var stale string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, `"event":"stale"`) {
			stale = line
		}
	}
	if stale == "" {
		t.Fatalf("Expected a stale event, log was:\n%s", data)
	}
	for _, want := range []string{`"group_key":"g"`, `"identifier":"1"`, "img_1.png"} {
		if !strings.Contains(stale, want) {
			t.Errorf("Stale event %s missing %s", stale, want)
		}
	}
}
