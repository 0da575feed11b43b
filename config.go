package goLMS

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goLMS/cache"
	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/MrEthical07/goLMS/request"
)

// Config is the complete client configuration. Start from DefaultConfig and
// set at least API.Origin.
type Config struct {
	API     request.Config
	Push    PushConfig
	Cache   cache.Config
	Notify  notify.Config
	Session SessionConfig
	Metrics MetricsConfig
}

/*
====================================
PUSH CONFIG
====================================
*/

// Push transports.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// PushConfig controls the server-push channel.
type PushConfig struct {
	// Endpoint is an absolute push URL. When empty the endpoint is
	// API.Origin + API.BasePath + Path.
	Endpoint string
	Path     string
	// Transport is "sse" (default) or "websocket".
	Transport      string
	ReconnectDelay time.Duration
	AutoReconnect  bool
	// ConnectOnLogin opens the channel whenever the session becomes
	// authenticated and closes it on logout.
	ConnectOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session restoration.
type SessionConfig struct {
	// DiscardExpired clears a persisted JWT whose exp has passed without
	// calling the backend. Opaque tokens are always checked remotely.
	DiscardExpired bool
	ExpiryLeeway   time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every field but API.Origin set.
func DefaultConfig() Config {
	return Config{
		API:    request.DefaultConfig(),
		Cache:  cache.DefaultConfig(),
		Notify: notify.DefaultConfig(),
		Push: PushConfig{
			Path:           "/notifications/stream",
			Transport:      TransportSSE,
			ReconnectDelay: 5 * time.Second,
			AutoReconnect:  true,
			ConnectOnLogin: true,
		},
		Session: SessionConfig{
			DiscardExpired: true,
			ExpiryLeeway:   30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks every section and wraps the first failure in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("%w: api: %v", ErrInvalidConfig, err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("%w: cache: %v", ErrInvalidConfig, err)
	}

	if c.Notify.BufferSize <= 0 {
		return fmt.Errorf("%w: notify buffer size must be > 0", ErrInvalidConfig)
	}
	if c.Notify.DefaultTTL < 0 {
		return fmt.Errorf("%w: notify default TTL must be >= 0", ErrInvalidConfig)
	}

	switch c.Push.Transport {
	case "", TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownTransport, c.Push.Transport)
	}
	if err := c.channelConfig().Validate(); err != nil {
		return fmt.Errorf("%w: push: %v", ErrInvalidConfig, err)
	}

	if c.Session.ExpiryLeeway < 0 || c.Session.ExpiryLeeway > 5*time.Minute {
		return fmt.Errorf("%w: session expiry leeway must be in [0,5m]", ErrInvalidConfig)
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: latency histograms require metrics", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) pushEndpoint() string {
	if c.Push.Endpoint != "" {
		return c.Push.Endpoint
	}
	base, err := url.Parse(strings.TrimRight(c.API.Origin, "/"))
	if err != nil {
		return ""
	}
	base.Path = strings.TrimRight(c.API.BasePath, "/") + c.Push.Path
	if c.Push.Transport == TransportWebSocket {
		switch base.Scheme {
		case "http":
			base.Scheme = "ws"
		case "https":
			base.Scheme = "wss"
		}
	}
	return base.String()
}

func (c *Config) channelConfig() channel.Config {
	return channel.Config{
		Endpoint:       c.pushEndpoint(),
		ReconnectDelay: c.Push.ReconnectDelay,
		AutoReconnect:  c.Push.AutoReconnect,
	}
}
