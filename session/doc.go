// Package session holds the client-side authentication state and the persisted
// access token.
//
// # State
//
// [Manager] owns the single mutable copy of [State]. It is the only component
// allowed to change the access token; the request client and the push channel
// read it through [Manager.Token].
//
// Invariant: State.IsAuthenticated is true iff State.AccessToken is non-empty and
// [Manager.SetUser] succeeded for the token generation currently held.
//
// # Token persistence
//
// Exactly one value is persisted: the raw access token. [TokenStore] has memory,
// file and Redis implementations.
//
// # What this package must NOT do
//
//   - Perform HTTP calls. Login, logout and restore orchestration live in goLMS.
//   - Persist the user record or anything other than the raw token.
//   - Interpret token contents (see package jwt).
package session
