// Package chromem adapts chromem-go, a pure Go embedded vector
// database, to the profile.VectorStore interface.
//
// Each logical collection (quick_match, personality_profiles,
// personality_evolution) maps to one chromem collection. Payloads are
// serialized to JSON in the document content; the embedding is always
// supplied by the caller, never computed by chromem.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/xksnk/selfolgy.me-sub005/profile"
)

// Store wraps a chromem DB holding the three profile collections.
type Store struct {
	db          *chromem.DB
	collections map[profile.Collection]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[profile.Collection]*chromem.Collection),
	}, nil
}

// NewPersistent creates a store that persists to the given directory.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	return &Store{
		db:          db,
		collections: make(map[profile.Collection]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the chromem collection for a logical
// role, creating it on first use.
func (s *Store) getOrCreateCollection(col profile.Collection) (*chromem.Collection, error) {
	s.mu.RLock()
	c, exists := s.collections[col]
	s.mu.RUnlock()
	if exists {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if c, exists := s.collections[col]; exists {
		return c, nil
	}

	// nil embedding func: vectors are always provided by the caller.
	c, err := s.db.GetOrCreateCollection(string(col), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", col, err)
	}
	s.collections[col] = c
	return c, nil
}

// Upsert writes a point, replacing any existing document with the same
// id. The vector must be non-empty: chromem would otherwise try to
// compute an embedding itself.
func (s *Store) Upsert(ctx context.Context, col profile.Collection, id string, vector []float32, payload map[string]any) error {
	if len(vector) == 0 {
		return fmt.Errorf("upsert %s/%s: empty vector", col, id)
	}
	c, err := s.getOrCreateCollection(col)
	if err != nil {
		return err
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize payload for %s/%s: %w", col, id, err)
	}

	metadata := map[string]string{}
	if userID, ok := payload["user_id"].(string); ok {
		metadata["user_id"] = userID
	}
	if milestone, ok := payload["is_milestone"].(bool); ok {
		metadata["is_milestone"] = fmt.Sprintf("%t", milestone)
	}

	log.Printf("[CHROMEM] Upserting point: collection=%s, id=%s, dims=%d", col, id, len(vector))

	doc := chromem.Document{
		ID:        id,
		Content:   string(content),
		Embedding: vector,
		Metadata:  metadata,
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s/%s: %w", col, id, err)
	}
	return nil
}

// Get returns the point with the given id, or nil when absent.
func (s *Store) Get(ctx context.Context, col profile.Collection, id string) (*profile.Point, error) {
	c, err := s.getOrCreateCollection(col)
	if err != nil {
		return nil, err
	}

	doc, err := c.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("get document %s/%s: %w", col, id, err)
	}

	var payload map[string]any
	if doc.Content != "" {
		if err := json.Unmarshal([]byte(doc.Content), &payload); err != nil {
			return nil, fmt.Errorf("deserialize payload for %s/%s: %w", col, id, err)
		}
	}

	return &profile.Point{
		ID:      doc.ID,
		Vector:  doc.Embedding,
		Payload: payload,
	}, nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(col profile.Collection) (int, error) {
	c, err := s.getOrCreateCollection(col)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Close releases resources. The in-memory DB has nothing to close;
// persistent DBs flush on every write.
func (s *Store) Close() error {
	return nil
}
