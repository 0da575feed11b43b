// Package permission provides fixed-size bitmask types, a permission registry, role
// composition and the [Gate] used by goLMS to answer "may this user do X on Y".
//
// # Permissions
//
// A permission is an (action, resource) pair registered under the name
// "action:resource" (see [Name]). Bit positions are assigned by [Registry.Register]
// and are stable for the lifetime of the process. Supported widths: 64 and 128 bits.
//
// # Precedence
//
// [Gate] evaluates roles in privilege order (highest first) and short-circuits on the
// first role that grants the requested pair. A root role grants every pair, including
// pairs that were never registered.
//
// # What this package must NOT do
//
//   - Perform I/O of any kind. Gate checks run synchronously inside render paths and
//     route guards.
//   - Import goLMS, session or request.
//   - Resize masks after registry construction.
package permission
