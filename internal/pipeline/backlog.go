package pipeline

import (
	"sync"

	"ecopulse/internal/domain"
)

// BacklogQueue is the strict-FIFO queue of items deferred from (or never
// eligible for) the immediate lane. Producers are the source handlers; the
// single consumer is the scheduled publisher.
type BacklogQueue struct {
	mu    sync.Mutex
	items []domain.Item
}

// NewBacklogQueue builds an empty queue.
func NewBacklogQueue() *BacklogQueue {
	return &BacklogQueue{}
}

// Push appends an item to the tail.
func (q *BacklogQueue) Push(item domain.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Pop removes and returns the head item; ok is false when the queue is empty.
func (q *BacklogQueue) Pop() (domain.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.Item{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Len reports the number of queued items.
func (q *BacklogQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies up to n items from the head for operator previews.
func (q *BacklogQueue) Snapshot(n int) []domain.Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]domain.Item, n)
	copy(out, q.items[:n])
	return out
}

// Clear drops all queued items and returns how many were held.
func (q *BacklogQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := len(q.items)
	q.items = nil
	return count
}
