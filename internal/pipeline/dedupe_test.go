package pipeline

import (
	"fmt"
	"testing"
)

func TestDedupRejectsRepeat(t *testing.T) {
	t.Parallel()

	cache := NewDedupCache(10)
	if !cache.Admit("payload") {
		t.Fatal("first admit should pass")
	}
	if cache.Admit("payload") {
		t.Fatal("second admit of same signature should be rejected")
	}
}

func TestDedupEvictsOldestByInsertionOrder(t *testing.T) {
	t.Parallel()

	const limit = 5
	cache := NewDedupCache(limit)

	for i := 0; i <= limit; i++ {
		if !cache.Admit(fmt.Sprintf("sig-%d", i)) {
			t.Fatalf("admit sig-%d should pass", i)
		}
	}

	// sig-0 was the oldest insertion and must have been evicted.
	if !cache.Admit("sig-0") {
		t.Fatal("evicted signature should be admit-able again")
	}
	// sig-1 is still recorded.
	if cache.Admit("sig-1") {
		t.Fatal("sig-1 should still be rejected")
	}
}

func TestDedupLenAndClear(t *testing.T) {
	t.Parallel()

	cache := NewDedupCache(10)
	cache.Admit("a")
	cache.Admit("b")

	if got := cache.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if got := cache.Clear(); got != 2 {
		t.Fatalf("Clear = %d, want 2", got)
	}
	if !cache.Admit("a") {
		t.Fatal("admit after clear should pass")
	}
}
