package channel

import (
	"fmt"
	"net/url"
	"time"
)

// Config controls a Channel.
type Config struct {
	// Endpoint is the push URL without the token parameter.
	Endpoint       string
	ReconnectDelay time.Duration
	AutoReconnect  bool
}

func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 5 * time.Second,
		AutoReconnect:  true,
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute URL", ErrInvalidConfig)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported endpoint scheme %q", ErrInvalidConfig, u.Scheme)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect delay must be > 0", ErrInvalidConfig)
	}
	return nil
}

func (c Config) urlWithToken(token string) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
