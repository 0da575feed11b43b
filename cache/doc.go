// Package cache is the keyed, staleness-aware query cache shared by every
// screen of the client, with optimistic mutations on top.
//
// # Reads
//
// [Query] returns cached data while it is fresh. Stale or missing data is
// fetched; concurrent fetches of one key share a single call. With
// [Background] a stale entry is returned at once and refreshed behind the
// caller.
//
// # Mutations
//
// [Mutate] snapshots every affected key, applies the speculative patch before
// the network call, then settles exactly once:
//   - success marks the affected keys stale so the next read refetches
//   - failure restores the exact snapshot and raises the failure notice
//
// No key is left speculative once every mutation on it has settled. Mutations
// racing on one key resolve as last-settled-wins: the base snapshot is
// restored only when all of them failed, otherwise the entry is marked stale.
//
// A fetch that started before a write, mutation or invalidation of its key is
// returned to its caller but not cached.
//
// Patches match records by natural key (see [PatchSlice]); when nothing
// matches the speculative step is a no-op.
//
// # What this package must NOT do
//
//   - Issue HTTP calls itself. Fetch and commit functions are supplied by callers.
//   - Insert records that the server has not returned.
package cache
