package sequence

import "context"

// Allocator issues identifiers that are strictly increasing per entity and never reused.
// The first identifier issued for an entity is 1.
type Allocator interface {
	Next(ctx context.Context, entity string) (int64, error)
}
