package store

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"path_cache", "metadata_cache", "schema_version"} {
		n := countRows(t, store, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if n != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	if n := countRows(t, store, "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_path_cache_path'"); n != 1 {
		t.Error("expected idx_path_cache_path to exist (schema v2)")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reopen.db")
	file := touch(t, dir, "a_001.png")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.PutPath("2024-01-01", "001", file); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	path, ok, err := store.GetPath("2024-01-01", "001")
	if err != nil || !ok || path != file {
		t.Errorf("GetPath after reopen = %q, %v, %v", path, ok, err)
	}
}

func TestOpenForBaseCreatesCacheDirectory(t *testing.T) {
	base := t.TempDir()

	store, err := OpenForBase(base)
	if err != nil {
		t.Fatalf("OpenForBase failed: %v", err)
	}
	defer store.Close()

	expected := filepath.Join(base, "cache", "db.sqlite")
	if store.Path() != expected {
		t.Errorf("Path() = %q, expected %q", store.Path(), expected)
	}
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestGetPathSelfHeals(t *testing.T) {
	store := openTestStore(t)
	file := touch(t, t.TempDir(), "img_001.png")

	if err := store.PutPath("2024-01-01", "001", file); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}

	path, ok, err := store.GetPath("2024-01-01", "001")
	if err != nil || !ok || path != file {
		t.Fatalf("GetPath = %q, %v, %v; expected hit", path, ok, err)
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	path, ok, err = store.GetPath("2024-01-01", "001")
	if err != nil {
		t.Fatalf("GetPath failed: %v", err)
	}
	if ok || path != "" {
		t.Errorf("expected miss for vanished file, got %q", path)
	}

	if n := countRows(t, store, "SELECT COUNT(*) FROM path_cache"); n != 0 {
		t.Errorf("expected stale row to be deleted, %d rows remain", n)
	}
}

func TestGetPathMissingRow(t *testing.T) {
	store := openTestStore(t)

	path, ok, err := store.GetPath("nope", "000")
	if err != nil || ok || path != "" {
		t.Errorf("GetPath on empty cache = %q, %v, %v", path, ok, err)
	}
}

func TestPutPathIdempotent(t *testing.T) {
	store := openTestStore(t)
	file := touch(t, t.TempDir(), "img_001.png")

	for i := 0; i < 3; i++ {
		if err := store.PutPath("g", "001", file); err != nil {
			t.Fatalf("PutPath #%d failed: %v", i, err)
		}
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM path_cache"); n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
	if err := store.PutPath("g", "002", ""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}
}

func TestPutPathRepointDropsOldMetadata(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	oldFile := touch(t, dir, "old_001.png")
	newFile := touch(t, dir, "new_001.png")

	if err := store.PutPath("g", "001", oldFile); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}
	if err := store.PutMetadata(&Metadata{Path: oldFile, State: MetadataPresent, JSON: "{}"}); err != nil {
		t.Fatalf("PutMetadata failed: %v", err)
	}

	if err := store.PutPath("g", "001", newFile); err != nil {
		t.Fatalf("PutPath (repoint) failed: %v", err)
	}

	path, ok, _ := store.GetPath("g", "001")
	if !ok || path != newFile {
		t.Errorf("expected repointed path %q, got %q", newFile, path)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM metadata_cache WHERE path = ?", oldFile); n != 0 {
		t.Error("expected metadata of previous path to be dropped")
	}
}

func TestPutPathRepointKeepsSharedMetadata(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	shared := touch(t, dir, "shared_001_002.png")
	other := touch(t, dir, "other_001.png")

	store.PutPath("g", "001", shared)
	store.PutPath("g", "002", shared)
	store.PutMetadata(&Metadata{Path: shared, State: MetadataAbsent})

	if err := store.PutPath("g", "001", other); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}

	m, err := store.GetMetadata(shared)
	if err != nil || m == nil {
		t.Fatalf("expected shared metadata to survive, got %v, %v", m, err)
	}
}

func TestMetadataStates(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	absent := touch(t, dir, "absent.png")
	present := touch(t, dir, "present.png")
	pending := touch(t, dir, "pending.png")

	if m, err := store.GetMetadata(absent); err != nil || m != nil {
		t.Fatalf("expected nil before computing, got %v, %v", m, err)
	}

	if err := store.PutMetadata(&Metadata{Path: absent, State: MetadataAbsent}); err != nil {
		t.Fatalf("PutMetadata (absent) failed: %v", err)
	}
	m, err := store.GetMetadata(absent)
	if err != nil || m == nil {
		t.Fatalf("GetMetadata (absent) = %v, %v", m, err)
	}
	if m.State != MetadataAbsent || m.JSON != "" {
		t.Errorf("expected absent sentinel, got state=%s json=%q", m.State, m.JSON)
	}

	err = store.PutMetadata(&Metadata{
		Path:         present,
		State:        MetadataPresent,
		JSON:         `{"a": 1}`,
		CkptName:     "x.safetensors",
		SamplerNames: []string{"euler", "dpmpp_2m", "extra"},
	})
	if err != nil {
		t.Fatalf("PutMetadata (present) failed: %v", err)
	}
	m, err = store.GetMetadata(present)
	if err != nil || m == nil {
		t.Fatalf("GetMetadata (present) = %v, %v", m, err)
	}
	if m.State != MetadataPresent || m.CkptName != "x.safetensors" {
		t.Errorf("unexpected metadata %#v", m)
	}
	if len(m.SamplerNames) != 2 || m.SamplerNames[0] != "euler" || m.SamplerNames[1] != "dpmpp_2m" {
		t.Errorf("expected samplers capped at two, got %v", m.SamplerNames)
	}

	// A row with every value column NULL counts as not computed
	if _, err := store.db.Exec("INSERT INTO metadata_cache (path) VALUES (?)", pending); err != nil {
		t.Fatalf("failed to insert pending row: %v", err)
	}
	if m, err := store.GetMetadata(pending); err != nil || m != nil {
		t.Errorf("expected nil for uncomputed row, got %v, %v", m, err)
	}

	if err := store.PutMetadata(&Metadata{Path: pending}); err == nil {
		t.Error("expected error storing unknown state")
	}
}

func TestGetMetadataPurgesVanishedFile(t *testing.T) {
	store := openTestStore(t)
	file := touch(t, t.TempDir(), "img_009.png")

	store.PutPath("g", "009", file)
	store.PutPath("h", "009", file)
	store.PutMetadata(&Metadata{Path: file, State: MetadataPresent, JSON: "{}"})

	os.Remove(file)

	m, err := store.GetMetadata(file)
	if err != nil || m != nil {
		t.Fatalf("expected nil for vanished file, got %v, %v", m, err)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM metadata_cache"); n != 0 {
		t.Errorf("expected metadata row purged, %d remain", n)
	}
	if n := countRows(t, store, "SELECT COUNT(*) FROM path_cache"); n != 0 {
		t.Errorf("expected path rows purged, %d remain", n)
	}
}

func TestOnStaleReportsDroppedRows(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()

	var got []string
	store.OnStale(func(groupKey, identifier, path string) {
		got = append(got, groupKey+"/"+identifier+"="+filepath.Base(path))
	})

	healed := touch(t, dir, "a_1.png")
	shared := touch(t, dir, "b_2.png")
	orphan := touch(t, dir, "c_3.png")
	store.PutPath("g", "1", healed)
	store.PutPath("g", "2", shared)
	store.PutPath("h", "2", shared)
	store.PutMetadata(&Metadata{Path: orphan, State: MetadataAbsent})
	for _, f := range []string{healed, shared, orphan} {
		os.Remove(f)
	}

	store.GetPath("g", "1")
	store.GetMetadata(shared)
	store.GetMetadata(orphan)
	// nothing cached for this one, so nothing is reported
	store.GetMetadata(filepath.Join(dir, "never_cached.png"))

	expected := []string{"g/1=a_1.png", "g/2=b_2.png", "h/2=b_2.png", "/=c_3.png"}
	if len(got) != len(expected) {
		t.Fatalf("OnStale calls = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("OnStale call %d = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestPruneStaleAndStats(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	keep := touch(t, dir, "keep_1.png")
	gone := touch(t, dir, "gone_2.png")

	store.PutPath("g", "1", keep)
	store.PutPath("g", "2", gone)
	store.PutMetadata(&Metadata{Path: keep, State: MetadataPresent, JSON: "{}"})
	store.PutMetadata(&Metadata{Path: gone, State: MetadataAbsent})
	os.Remove(gone)

	st, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.PathEntries != 2 || st.MetadataEntries != 2 || st.MetadataPresent != 1 || st.MetadataAbsent != 1 {
		t.Errorf("unexpected stats before prune: %+v", st)
	}

	result, err := store.PruneStale()
	if err != nil {
		t.Fatalf("PruneStale failed: %v", err)
	}
	if result.PathsRemoved != 1 || result.MetadataRemoved != 1 {
		t.Errorf("unexpected prune result: %+v", result)
	}

	entries, err := store.ListPaths()
	if err != nil {
		t.Fatalf("ListPaths failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != keep {
		t.Errorf("unexpected remaining entries: %+v", entries)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	st, _ = store.Stats()
	if st.PathEntries != 0 || st.MetadataEntries != 0 {
		t.Errorf("expected empty cache after Clear, got %+v", st)
	}
}

func TestOpenMemory(t *testing.T) {
	store, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	defer store.Close()

	file := touch(t, t.TempDir(), "mem_1.png")
	if err := store.PutPath("g", "1", file); err != nil {
		t.Fatalf("PutPath failed: %v", err)
	}
	if _, ok, _ := store.GetPath("g", "1"); !ok {
		t.Error("expected in-memory store to retain rows")
	}
	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("CheckIntegrity failed: %v", err)
	}
	if SQLiteVersion() == "" {
		t.Error("expected SQLite version")
	}
}

func TestTopValues(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()

	rows := []struct {
		name     string
		ckpt     string
		samplers []string
	}{
		{"a.png", "sdxl.safetensors", []string{"euler", "dpmpp_2m"}},
		{"b.png", "sdxl.safetensors", []string{"euler"}},
		{"c.png", "sd15.ckpt", []string{"euler", "euler"}},
		{"d.png", "", nil},
	}
	for _, r := range rows {
		path := touch(t, dir, r.name)
		if err := store.PutMetadata(&Metadata{Path: path, State: MetadataPresent, JSON: "{}", CkptName: r.ckpt, SamplerNames: r.samplers}); err != nil {
			t.Fatalf("PutMetadata failed: %v", err)
		}
	}

	ckpts, err := store.TopCheckpoints(10)
	if err != nil {
		t.Fatalf("TopCheckpoints failed: %v", err)
	}
	if len(ckpts) != 2 || ckpts[0].Value != "sdxl.safetensors" || ckpts[0].Count != 2 {
		t.Errorf("Unexpected checkpoint counts: %+v", ckpts)
	}

	samplers, err := store.TopSamplers(1)
	if err != nil {
		t.Fatalf("TopSamplers failed: %v", err)
	}
	if len(samplers) != 1 || samplers[0].Value != "euler" || samplers[0].Count != 4 {
		t.Errorf("Unexpected sampler counts: %+v", samplers)
	}
}
