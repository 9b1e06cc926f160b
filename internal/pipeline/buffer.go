package pipeline

import "sync"

// AggregationBuffer collects normalized items awaiting the periodic digest.
// There is no size bound beyond the natural hourly drain. Drain atomically
// swaps the whole slice out, so an append racing with a digest run lands in
// the next generation instead of being lost or half-read.
type AggregationBuffer struct {
	mu      sync.Mutex
	entries []string
}

// NewAggregationBuffer builds an empty buffer.
func NewAggregationBuffer() *AggregationBuffer {
	return &AggregationBuffer{}
}

// Append records one normalized entry in insertion order.
func (b *AggregationBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Drain returns every buffered entry in insertion order and leaves the
// buffer empty, as one atomic step.
func (b *AggregationBuffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.entries
	b.entries = nil
	return entries
}

// Len reports the number of buffered entries.
func (b *AggregationBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Snapshot copies up to n entries from the tail for operator previews.
func (b *AggregationBuffer) Snapshot(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]string, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}

// Clear drops all buffered entries and returns how many were held.
func (b *AggregationBuffer) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := len(b.entries)
	b.entries = nil
	return count
}
