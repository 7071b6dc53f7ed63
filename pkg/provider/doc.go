// Package provider adapts the membership engines to the shape web frameworks expect from a
// membership and role provider.
//
// The engines report missing records as errors or false; framework providers traditionally
// use sentinel values instead. Membership translates: -1 for unknown user ids, the zero
// time for missing dates, JSON for extra profile values and minutes for token lifetimes.
// Lockout is not implemented, so MaxInvalidPasswordAttempts and PasswordAttemptWindow
// report math.MaxInt32. Framework operations that have no counterpart (password questions,
// password retrieval, e-mail lookups, online tracking, unlock) return ErrNotSupported.
package provider
