package subs

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "subscriptions.json"))
}

func TestStoreUpsertLastWriteWins(t *testing.T) {
	store := newTestStore(t)

	if err := store.Upsert(Subscription{ChannelID: "chan-1", Time: "09:00", Country: "Kenya"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(Subscription{ChannelID: "chan-2", Time: "10:30"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(Subscription{ChannelID: "chan-1", Time: "18:15", Country: "Japan"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	subscriptions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subscriptions) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subscriptions))
	}
	for _, sub := range subscriptions {
		if sub.ChannelID == "chan-1" && (sub.Time != "18:15" || sub.Country != "Japan") {
			t.Fatalf("expected last write to win, got %+v", sub)
		}
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	if err := store.Upsert(Subscription{ChannelID: "chan-1", Time: "09:00"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := store.Remove("chan-1")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = store.Remove("chan-1")
	if err != nil || removed {
		t.Fatalf("expected no-op removal, got removed=%v err=%v", removed, err)
	}

	subscriptions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subscriptions) != 0 {
		t.Fatalf("expected empty store, got %+v", subscriptions)
	}
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)
	subscriptions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subscriptions) != 0 {
		t.Fatalf("expected empty list, got %+v", subscriptions)
	}
}

func TestStoreToleratesCommentLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	content := "// daily fact subscriptions, one entry per channel\n" +
		`{"subscriptions": [{"channel_id": "chan-1", "time": "07:45", "country": "Peru"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := NewStore(path)
	subscriptions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subscriptions) != 1 || subscriptions[0].Country != "Peru" {
		t.Fatalf("unexpected subscriptions %+v", subscriptions)
	}
}

func TestStoreRejectsBlankChannel(t *testing.T) {
	store := newTestStore(t)
	if err := store.Upsert(Subscription{ChannelID: "  ", Time: "09:00"}); err == nil {
		t.Fatal("expected error for blank channel id")
	}
}
