package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGormStoreRoundTrip(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	seed := []*Event{
		{ID: "1", Type: "AUTHENTICATION.FAILED", ActorID: "alice", Status: "failure", Risk: RiskMedium, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Type: "AUTHENTICATION.SUCCEEDED", ActorID: "alice", Status: "success", Risk: RiskLow, Metadata: JSON(`{"account_id":"alice"}`), CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Type: "AUTHENTICATION.ACCOUNT_LOCKED", ActorID: "bob", Status: "blocked", Risk: RiskHigh, CreatedAt: now},
	}
	for _, evt := range seed {
		if err := store.SaveEvent(ctx, evt); err != nil {
			t.Fatalf("save %s: %v", evt.ID, err)
		}
	}

	events, err := store.Query(ctx, Filter{ActorID: "alice"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for alice, got %d", len(events))
	}
	// Oldest first.
	if events[0].ID != "1" || events[1].ID != "2" {
		t.Errorf("unexpected order: %s, %s", events[0].ID, events[1].ID)
	}
	if string(events[1].Metadata) != `{"account_id":"alice"}` {
		t.Errorf("metadata did not survive the round trip: %s", events[1].Metadata)
	}

	events, err = store.Query(ctx, Filter{Statuses: []string{"blocked"}})
	if err != nil || len(events) != 1 || events[0].Risk != RiskHigh {
		t.Errorf("status filter returned %v, %v", events, err)
	}

	events, err = store.Query(ctx, Filter{Since: now.Add(-90 * time.Minute), Limit: 1})
	if err != nil || len(events) != 1 || events[0].ID != "2" {
		t.Errorf("since+limit filter returned %v, %v", events, err)
	}
}

func TestGormStoreCountAndPurge(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, age := range []time.Duration{48 * time.Hour, 36 * time.Hour, time.Hour} {
		evt := &Event{ID: string(rune('a' + i)), Type: "AUTHENTICATION.FAILED", ActorID: "alice", Status: "failure", CreatedAt: now.Add(-age)}
		if err := store.SaveEvent(ctx, evt); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	count, err := store.Count(ctx, Filter{ActorID: "alice"})
	if err != nil || count != 3 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	purged, err := store.Purge(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Errorf("expected 2 purged rows, got %d", purged)
	}
	count, _ = store.Count(ctx, Filter{})
	if count != 1 {
		t.Errorf("expected 1 remaining row, got %d", count)
	}
}
