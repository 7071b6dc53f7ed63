// Package sequence issues monotonically increasing integer identifiers per entity type.
//
// Document stores have no auto-increment keys, so identifiers are allocated from a counter record that
// is touched exactly once per allocation with a single atomic operation. Two concurrent callers can
// never observe the same value and an identifier is never handed out twice, even after the record it
// was assigned to is deleted.
//
// Three backends implement the Allocator interface:
//
//   - MongoAllocator keeps one document per entity in a dedicated collection and increments it with
//     FindOneAndUpdate ($inc, upsert, return-after).
//   - RedisAllocator uses INCR on one key per entity.
//   - MemoryAllocator keeps counters in process memory and is meant for tests and embedded use.
//
// # Usage
//
//	alloc := sequence.NewMongoAllocator(db.Collection("IDSequence"))
//	id, err := alloc.Next(ctx, "webpages_Membership")
//	if err != nil {
//		// errors.Is(err, sequence.ErrAllocationFailed)
//	}
//
// # Error Handling
//
// A failed allocation never returns a synthesized or cached value. Store errors are joined with
// ErrAllocationFailed so callers can match either the sentinel or the driver error.
package sequence
