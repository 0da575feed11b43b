// Package notify delivers user-facing notices (toasts) away from the code that
// raises them.
//
// # Architecture boundaries
//
// A [Dispatcher] is an explicit instance handed to the request client and the
// cache. There is no package-level notifier. Producers call [Dispatcher.Notify]
// and never block on rendering: notices flow through a buffered channel into a
// single [Sink] goroutine.
//
// Sinks:
//   - [NoOpSink] discards notices
//   - [ChannelSink] exposes notices on a Go channel
//   - [JSONWriterSink] writes one JSON object per line
//   - [Board] keeps the set of active notices with auto-expiry and Dismiss
//
// # What this package must NOT do
//
//   - Decide whether an error deserves a notice. Callers do that.
//   - Format messages for a particular UI toolkit.
package notify
