package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/reup/internal/model"
)

const searchURL = "http://universities.hipolabs.com/search?country=China"

func payload(body string) *Payload {
	return &Payload{
		Body:        []byte(body),
		ContentType: "application/json",
		StoredAt:    time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestKey(t *testing.T) {
	a := Key(searchURL)
	if a != Key(searchURL) {
		t.Error("same URL produced different keys")
	}
	if a == Key("http://universities.hipolabs.com/search?country=Chile") {
		t.Error("different URLs produced the same key")
	}
	if strings.ContainsAny(a, `/\:?`) {
		t.Errorf("key %q is not a safe file name", a)
	}
}

func TestMemoryCache_StoreLoadEvict(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	p := payload(`[{"a":1}]`)
	if err := c.Store(searchURL, p, 0); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// The stored body must not alias the caller's slice
	p.Body[0] = 'x'

	got, ok := c.Load(searchURL)
	if !ok {
		t.Fatal("expected hit")
	}
	if diff := cmp.Diff(payload(`[{"a":1}]`), got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}

	_ = c.Evict(searchURL)
	if _, ok := c.Load(searchURL); ok {
		t.Error("expected miss after Evict")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Store(searchURL, payload("[]"), 0); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok := c.Load(searchURL)
	if !ok || string(got.Body) != "[]" || got.ContentType != "application/json" {
		t.Fatalf("Load = %+v, %v", got, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Load(searchURL); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(c.path(searchURL)); !os.IsNotExist(err) {
		t.Errorf("expired entry file should be removed, stat err = %v", err)
	}
}

func TestDiskCache_CorruptEntryIsMiss(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := os.WriteFile(c.path(searchURL), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load(searchURL); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestDiskCache_EntryForOtherURLIsMiss(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	data, err := json.Marshal(diskEntry{URL: "http://elsewhere/", Payload: *payload("[]"), ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path(searchURL), data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load(searchURL); ok {
		t.Error("entry recorded for another URL must not be served")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	cfg := model.CacheConfig{Dir: filepath.Join(t.TempDir(), "cache"), MemoryTTL: time.Minute, DiskTTL: time.Hour}

	first := NewLayeredCache(cfg)
	if err := first.Store(searchURL, payload("[]"), 0); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// A fresh instance has an empty memory tier but shares the disk tier
	second := NewLayeredCache(cfg)
	if got, ok := second.Load(searchURL); !ok || string(got.Body) != "[]" {
		t.Fatalf("Load from disk = %+v, %v", got, ok)
	}
	if _, ok := second.memory.Load(searchURL); !ok {
		t.Error("disk hit not promoted to memory")
	}

	if err := second.Evict(searchURL); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, ok := second.Load(searchURL); ok {
		t.Error("expected miss after Evict")
	}
}
