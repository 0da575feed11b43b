package request

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config controls a Client.
type Config struct {
	// Origin is the scheme and host of the API, e.g. https://lms.example.edu.
	Origin string
	// BasePath is prefixed to every request path.
	BasePath string
	Timeout  time.Duration
	// MaxRetries applies to GET and HEAD only.
	MaxRetries       int
	RetryBackoff     time.Duration
	UserAgent        string
	MaxResponseBytes int64
}

func DefaultConfig() Config {
	return Config{
		BasePath:         "/api/v1",
		Timeout:          15 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     300 * time.Millisecond,
		UserAgent:        "goLMS",
		MaxResponseBytes: 4 << 20,
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: origin must be an absolute http(s) URL", ErrInvalidConfig)
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("%w: base path must start with /", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 5 {
		return fmt.Errorf("%w: max retries must be in [0,5]", ErrInvalidConfig)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("%w: retry backoff must be >= 0", ErrInvalidConfig)
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("%w: max response bytes must be > 0", ErrInvalidConfig)
	}
	return nil
}

func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.Origin, "/") + strings.TrimRight(c.BasePath, "/") + path
}
