package channel

import "errors"

var (
	ErrNoToken       = errors.New("channel: no access token")
	ErrInvalidConfig = errors.New("channel: invalid configuration")
	ErrHandshake     = errors.New("channel: handshake rejected")
)
