// Package middleware turns session and access-gate state into route
// decisions for a Go-served LMS shell.
//
// # Guards
//
//   - [Decide] is the pure decision function: allow, wait while the session
//     is loading, redirect to the login page, or redirect away when the user
//     lacks the required role or permission.
//   - [RequireSession], [RequireRole] and [RequirePermission] adapt Decide to
//     net/http middleware and inject the session into the request context.
//
// # Architecture boundaries
//
// Guards read a [Source] (implemented by goLMS.Client) and never call the
// backend. A 403 from the API is not a routing signal; only the local gate
// decides.
//
// # What this package must NOT do
//
//   - Parse tokens or inspect headers for credentials.
//   - Mutate the session.
//   - Import goLMS.
package middleware
