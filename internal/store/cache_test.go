package store

import (
	"testing"
)

func TestCacheWithoutStore(t *testing.T) {
	cache := NewCache(nil)

	if _, ok := cache.GetPath("g", "1"); ok {
		t.Error("nil-store cache should always miss")
	}
	cache.PutPath("g", "1", "/tmp/x.png")
	if _, ok := cache.GetMetadata("/tmp/x.png"); ok {
		t.Error("nil-store cache should always miss")
	}
	cache.PutMetadata(&Metadata{Path: "/tmp/x.png", State: MetadataAbsent})
}

func TestCacheSwallowsStorageErrors(t *testing.T) {
	store := openTestStore(t)
	file := touch(t, t.TempDir(), "img_1.png")
	cache := NewCache(store)

	cache.PutPath("g", "1", file)
	if path, ok := cache.GetPath("g", "1"); !ok || path != file {
		t.Fatalf("expected cache hit, got %q, %v", path, ok)
	}

	store.Close()

	if _, ok := cache.GetPath("g", "1"); ok {
		t.Error("closed store should read as a miss")
	}
	cache.PutPath("g", "2", file)
	cache.PutMetadata(&Metadata{Path: file, State: MetadataAbsent})
	if _, ok := cache.GetMetadata(file); ok {
		t.Error("closed store should read as a miss")
	}
}
