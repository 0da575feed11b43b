// Package request is the HTTP client every LMS API call goes through.
//
// # Pipeline
//
// Each outbound request passes the interceptors in order: JSON headers,
// X-Request-ID, X-Tenant-ID (from the context), bearer injection, then any
// caller-supplied interceptors. The bearer header is added only when the
// [TokenSource] reports a token.
//
// # Errors
//
// Every failure is normalized into a single [*Error] with a [Kind]. Side
// effects run once per call after normalization and after retries:
//   - 401 invokes the unauthorized handler (the session clears its token)
//   - 5xx and network failures raise one transient notice
//   - malformed success bodies are logged and reported with a generic message
//
// GET and HEAD are retried on transient failures; other methods are sent once.
//
// # What this package must NOT do
//
//   - Navigate or decide routing after a 401.
//   - Mutate the access token.
package request
