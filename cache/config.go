package cache

import (
	"fmt"
	"time"
)

type Config struct {
	// StaleTime is how long fetched data is served without refetching.
	StaleTime time.Duration
	// GCTime evicts entries that nobody read for this long.
	GCTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		StaleTime: 30 * time.Second,
		GCTime:    5 * time.Minute,
	}
}

func (c Config) Validate() error {
	if c.StaleTime < 0 {
		return fmt.Errorf("%w: stale time must be >= 0", ErrInvalidConfig)
	}
	if c.GCTime <= 0 {
		return fmt.Errorf("%w: gc time must be > 0", ErrInvalidConfig)
	}
	if c.GCTime < c.StaleTime {
		return fmt.Errorf("%w: gc time must be >= stale time", ErrInvalidConfig)
	}
	return nil
}
