package ttlcache

import (
	"errors"
	"testing"
	"time"
)

func TestGetFetchesOnMiss(t *testing.T) {
	c := New[string](time.Minute)

	calls := 0
	v, err := c.Get("k", func() (string, error) {
		calls++
		return "value", nil
	})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "value" {
		t.Errorf("got %q, want %q", v, "value")
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	// Second read within TTL must not fetch again.
	_, err = c.Get("k", func() (string, error) {
		calls++
		return "other", nil
	})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times after cached read, want 1", calls)
	}
}

func TestExpiryTriggersRefetch(t *testing.T) {
	c := New[int](5 * time.Minute)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("k", 1)

	// Advance past the TTL.
	now = now.Add(6 * time.Minute)

	if _, ok := c.Lookup("k"); ok {
		t.Error("expired entry should be a miss")
	}

	v, err := c.Get("k", func() (int, error) { return 2, nil })
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 2 {
		t.Errorf("got %d, want refetched value 2", v)
	}
}

func TestFetchErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)

	wantErr := errors.New("fetch failed")
	_, err := c.Get("k", func() (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed fetch should not populate the cache, len=%d", c.Len())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := New[int](time.Minute)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("old", 1)
	now = now.Add(30 * time.Second)
	c.Set("fresh", 2)
	now = now.Add(45 * time.Second) // "old" is 75s old, "fresh" is 45s old

	removed := c.Sweep()
	if removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if _, ok := c.Lookup("fresh"); !ok {
		t.Error("fresh entry should survive sweep")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Lookup("a"); ok {
		t.Error("deleted entry still present")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear left %d entries", c.Len())
	}
}
