package sequence

import (
	"context"
	"sync"
)

// MemoryAllocator keeps counters in process memory.
// It is safe for concurrent use; counters are lost when the process exits.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryAllocator creates an empty in-memory allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[string]int64)}
}

// Next increments and returns the counter for entity.
func (a *MemoryAllocator) Next(ctx context.Context, entity string) (int64, error) {
	if entity == "" {
		return 0, ErrEmptyEntity
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.counters[entity]++
	return a.counters[entity], nil
}

// Current returns the last value issued for entity, or 0 if none was issued yet.
func (a *MemoryAllocator) Current(entity string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[entity]
}

var _ Allocator = (*MemoryAllocator)(nil)
