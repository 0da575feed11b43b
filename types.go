package goLMS

import (
	"time"

	"github.com/MrEthical07/goLMS/cache"
)

// NotificationPreference is one delivery switch for an event type on a
// delivery channel, optionally scoped to a course.
type NotificationPreference struct {
	EventType string `json:"event_type" validate:"required,max=64"`
	Channel   string `json:"channel" validate:"required,oneof=email in_app push sms"`
	CourseID  string `json:"course_id,omitempty" validate:"omitempty,max=64"`
	Enabled   bool   `json:"enabled"`
}

// PreferenceKey is the natural key of a NotificationPreference.
type PreferenceKey struct {
	EventType string
	Channel   string
	CourseID  string
}

// NaturalKey identifies p independently of its position in a list.
func (p NotificationPreference) NaturalKey() PreferenceKey {
	return PreferenceKey{EventType: p.EventType, Channel: p.Channel, CourseID: p.CourseID}
}

// Notification is one inbox item. Identity is ID.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CourseID  string    `json:"course_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials are the inputs of a password login.
type Credentials struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required,min=1,max=1024"`
}

type tokenRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	GrantType string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Cache resources owned by the client.
const (
	ResourcePreferences   = "notification-preferences"
	ResourceNotifications = "notifications"
	ResourceCourses       = "courses"
)

// PreferencesKey is the cache key of the preference list.
func PreferencesKey() cache.Key {
	return cache.NewKey(ResourcePreferences, nil)
}

// NotificationsKey is the cache key of the inbox filtered by read state.
func NotificationsKey(unreadOnly bool) cache.Key {
	v := "false"
	if unreadOnly {
		v = "true"
	}
	return cache.NewKey(ResourceNotifications, map[string]string{"unread": v})
}

// CourseKey is the cache key of one course record.
func CourseKey(courseID string) cache.Key {
	return cache.NewKey(ResourceCourses, map[string]string{"id": courseID})
}
