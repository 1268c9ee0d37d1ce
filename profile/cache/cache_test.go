package cache

import (
	"testing"
	"time"
)

func TestCache_RoundTrip(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	vec := []float32{0.1, 0.2, 0.3}
	c.Put("some analysis text", 3, vec)
	c.Wait()

	got, ok := c.Get("some analysis text", 3)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 3 || got[1] != 0.2 {
		t.Errorf("got %v, want %v", got, vec)
	}
}

func TestCache_DimensionalityIsPartOfTheKey(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Put("same text", 512, []float32{1, 2})
	c.Wait()

	if _, ok := c.Get("same text", 1536); ok {
		t.Error("vector cached at one resolution must not serve another")
	}
	if _, ok := c.Get("same text", 512); !ok {
		t.Error("expected hit at the original resolution")
	}
}

func TestCache_MissOnUnknownText(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("never stored", 512); ok {
		t.Error("expected miss")
	}
}

func TestCache_EntriesExpireAfterTTL(t *testing.T) {
	c, err := New(&Config{TTL: 30 * time.Millisecond, MaxEntries: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Put("ephemeral", 4, []float32{1, 2, 3, 4})
	c.Wait()

	if _, ok := c.Get("ephemeral", 4); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("ephemeral", 4); ok {
		t.Error("expected miss after TTL")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Put("text", 4, []float32{1, 2, 3, 4})
	c.Wait()
	c.Invalidate("text", 4)

	if _, ok := c.Get("text", 4); ok {
		t.Error("expected miss after invalidation")
	}
}
