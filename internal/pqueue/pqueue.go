// Package pqueue implements the binary min-heap used by the cost-distance
// solvers. Entries are (grid index, tentative distance) pairs; superseded
// entries are left in place and skipped by the caller on pop (lazy
// deletion), which substitutes for a decrease-key operation.
package pqueue

// Item is a heap entry: a flat grid index and its tentative distance at the
// time it was pushed.
type Item struct {
	Index    int32
	Priority float32
}

// Queue is a binary min-heap ordered by Priority. The zero value is ready
// to use.
type Queue struct {
	items []Item
}

// Len returns the number of entries, including stale ones.
func (q *Queue) Len() int { return len(q.items) }

// Reset empties the queue, retaining its backing storage.
func (q *Queue) Reset() { q.items = q.items[:0] }

// Push adds an entry. Duplicate indices are allowed; older entries become
// stale and are skipped by the caller when popped.
func (q *Queue) Push(index int32, priority float32) {
	q.items = append(q.items, Item{Index: index, Priority: priority})
	q.up(len(q.items) - 1)
}

// PopMin removes and returns the entry with the smallest priority. The
// second return value is false when the queue is empty.
func (q *Queue) PopMin() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	top := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.down(0)
	}
	return top, true
}

func (q *Queue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if q.items[parent].Priority <= q.items[i].Priority {
			break
		}
		q.items[parent], q.items[i] = q.items[i], q.items[parent]
		i = parent
	}
}

func (q *Queue) down(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && q.items[right].Priority < q.items[left].Priority {
			smallest = right
		}
		if q.items[i].Priority <= q.items[smallest].Priority {
			break
		}
		q.items[i], q.items[smallest] = q.items[smallest], q.items[i]
		i = smallest
	}
}
