// Package jwt reads access tokens on the client and signs them for local
// test backends.
//
// The client never verifies signatures: it only needs the expiry to discard
// dead tokens before a network call. [Inspect] therefore parses without a key.
// [Signer] is the symmetric counterpart used by examples/mock-backend and tests.
package jwt
