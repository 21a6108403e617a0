package pqueue

import (
	"math/rand"
	"sort"
	"testing"
)

// TestPopOrder verifies that entries come out in ascending priority order.
func TestPopOrder(t *testing.T) {
	var q Queue
	priorities := []float32{5, 1, 3, 2, 4, 0.5, 2.5}
	for i, p := range priorities {
		q.Push(int32(i), p)
	}

	sorted := append([]float32(nil), priorities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, want := range sorted {
		item, ok := q.PopMin()
		if !ok {
			t.Fatalf("Queue exhausted after %d pops, expected %d", i, len(sorted))
		}
		if item.Priority != want {
			t.Errorf("Pop %d: expected priority %f, got %f", i, want, item.Priority)
		}
	}

	if _, ok := q.PopMin(); ok {
		t.Error("Expected empty queue after draining")
	}
}

// TestDuplicateIndices verifies that pushing the same index twice keeps both
// entries and yields the cheaper one first, matching the lazy-deletion
// contract used by the solvers.
func TestDuplicateIndices(t *testing.T) {
	var q Queue
	q.Push(7, 10)
	q.Push(7, 3)

	if q.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", q.Len())
	}

	first, _ := q.PopMin()
	if first.Index != 7 || first.Priority != 3 {
		t.Errorf("Expected (7, 3) first, got (%d, %f)", first.Index, first.Priority)
	}

	second, _ := q.PopMin()
	if second.Index != 7 || second.Priority != 10 {
		t.Errorf("Expected stale (7, 10) second, got (%d, %f)", second.Index, second.Priority)
	}
}

// TestReset verifies that Reset empties the queue and it remains usable.
func TestReset(t *testing.T) {
	var q Queue
	q.Push(1, 1)
	q.Push(2, 2)
	q.Reset()

	if q.Len() != 0 {
		t.Errorf("Expected empty queue after Reset, got %d entries", q.Len())
	}

	q.Push(3, 0.25)
	item, ok := q.PopMin()
	if !ok || item.Index != 3 {
		t.Errorf("Expected index 3 after Reset reuse, got %v (ok=%v)", item, ok)
	}
}

// TestRandomizedHeapProperty drains a large random load and checks the
// sequence never decreases.
func TestRandomizedHeapProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var q Queue
	const n = 5000
	for i := 0; i < n; i++ {
		q.Push(int32(i), rng.Float32()*100)
	}

	prev := float32(-1)
	for i := 0; i < n; i++ {
		item, ok := q.PopMin()
		if !ok {
			t.Fatalf("Queue exhausted after %d pops", i)
		}
		if item.Priority < prev {
			t.Fatalf("Pop %d: priority %f is smaller than previous %f", i, item.Priority, prev)
		}
		prev = item.Priority
	}
}
