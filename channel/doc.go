// Package channel keeps one reconnecting server-push connection per session
// and dispatches its frames to typed subscribers.
//
// # State machine
//
//	Disconnected -> Connecting   Connect with a token and no live handle
//	Connecting   -> Open         transport handshake succeeded
//	Open         -> Erroring     transport error or end of stream
//	Connecting   -> Erroring     dial failed
//	Erroring     -> Connecting   after ReconnectDelay when AutoReconnect is set
//	*            -> Disconnected Close, or a reconnect finds no token
//
// Exactly one reconnect timer exists at a time. Close stops it.
//
// # Delivery
//
// One reader goroutine per connection decodes frames in arrival order.
// Frames that are not valid JSON are logged and dropped. Named frames go to
// the handlers of that event kind in registration order; unnamed frames go to
// the single general handler. Subscriptions live on the Channel, so they
// survive reconnects.
//
// The access token is sent only as the "token" query parameter.
//
// # What this package must NOT do
//
//   - Read or change the session beyond calling TokenSource.Token.
//   - Surface transport errors synchronously from Connect.
package channel
