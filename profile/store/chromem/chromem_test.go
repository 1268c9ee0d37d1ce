package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/xksnk/selfolgy.me-sub005/profile"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	payload := map[string]any{
		"user_id":    "user-1",
		"summary":    "curious experimenter",
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}

	err = store.Upsert(ctx, profile.CollectionProfiles, "user-1", []float32{0.1, 0.2, 0.3}, payload)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	point, err := store.Get(ctx, profile.CollectionProfiles, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if point == nil {
		t.Fatal("expected a point")
	}
	if point.ID != "user-1" {
		t.Errorf("id = %q, want user-1", point.ID)
	}
	if len(point.Vector) != 3 {
		t.Errorf("vector length = %d, want 3", len(point.Vector))
	}
	if point.Payload["summary"] != "curious experimenter" {
		t.Errorf("payload summary = %v", point.Payload["summary"])
	}
}

func TestStore_MissingPointIsNil(t *testing.T) {
	store, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	point, err := store.Get(context.Background(), profile.CollectionProfiles, "nobody")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if point != nil {
		t.Errorf("expected nil for missing point, got %+v", point)
	}
}

func TestStore_UpsertReplacesExistingPoint(t *testing.T) {
	store, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Upsert(ctx, profile.CollectionQuickMatch, "user-1", []float32{1, 0}, map[string]any{"summary": "old"}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, profile.CollectionQuickMatch, "user-1", []float32{0, 1}, map[string]any{"summary": "new"}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	count, err := store.Count(profile.CollectionQuickMatch)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (same id must replace, not append)", count)
	}

	point, err := store.Get(ctx, profile.CollectionQuickMatch, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if point.Payload["summary"] != "new" {
		t.Errorf("payload summary = %v, want new", point.Payload["summary"])
	}
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	store, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Upsert(ctx, profile.CollectionProfiles, "user-1", []float32{1}, map[string]any{}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	point, err := store.Get(ctx, profile.CollectionEvolution, "user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if point != nil {
		t.Error("point written to one collection must not appear in another")
	}
}

func TestStore_EmptyVectorRejected(t *testing.T) {
	store, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	err = store.Upsert(context.Background(), profile.CollectionProfiles, "user-1", nil, map[string]any{})
	if err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestStore_PersistentRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPersistent(dir)
	if err != nil {
		t.Fatalf("NewPersistent failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Upsert(ctx, profile.CollectionProfiles, "user-1", []float32{0.5, 0.5}, map[string]any{"summary": "persisted"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewPersistent(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	point, err := reopened.Get(ctx, profile.CollectionProfiles, "user-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if point == nil {
		t.Fatal("expected point to survive reopen")
	}
	if point.Payload["summary"] != "persisted" {
		t.Errorf("payload summary = %v, want persisted", point.Payload["summary"])
	}
}
