// Package goLMS is the client-side core of a learning-management-system
// frontend: session and token state, an API client with an interceptor
// pipeline, a reconnecting server-push channel, a staleness-aware query
// cache with optimistic mutations, and the role gate consulted by route
// guards.
//
// A [Client] is assembled with [New] and [Builder.Build]. Its methods are
// safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goLMS is the public surface. It exposes [Client], [Builder], [Config], the
// LMS access policy and typed operations over the notification endpoints.
// Components live in sub-packages (session, request, channel, cache,
// permission, notify) that never import goLMS; this package wires them
// together: the session feeds tokens to the request client and the push
// channel, push events invalidate cache entries, and session transitions
// open or tear down the channel and the cache.
//
// # What this package must NOT do
//
//   - Navigate. Route decisions belong to middleware; a 401 only clears the
//     session.
//   - Persist anything but the access token.
//   - Show a global notice for local validation failures.
//   - Merge concurrent optimistic writes to one key; the last to settle wins.
package goLMS
