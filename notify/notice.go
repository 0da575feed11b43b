package notify

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single user-facing message. IDs are ULIDs so notices sort by
// creation time.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether n has an expiry at or before now.
func (n Notice) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// Notifier is what producers depend on.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Error builds an error-level notice.
func Error(source, message string) Notice {
	return Notice{Level: LevelError, Source: source, Message: message}
}

// Info builds an info-level notice.
func Info(source, message string) Notice {
	return Notice{Level: LevelInfo, Source: source, Message: message}
}

func (n Notice) withDefaults(now time.Time, ttl time.Duration) Notice {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ExpiresAt.IsZero() && ttl > 0 {
		n.ExpiresAt = n.CreatedAt.Add(ttl)
	}
	return n
}
