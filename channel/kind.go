package channel

import (
	"encoding/json"
	"time"
)

// Kind is a named push event with a typed payload.
type Kind[T any] struct {
	name   string
	decode func(json.RawMessage) (T, error)
}

// NewKind declares an event kind whose payload is decoded with encoding/json.
func NewKind[T any](name string) Kind[T] {
	return Kind[T]{
		name: name,
		decode: func(raw json.RawMessage) (T, error) {
			var v T
			err := json.Unmarshal(raw, &v)
			return v, err
		},
	}
}

// NewKindFunc declares an event kind with a custom decoder.
func NewKindFunc[T any](name string, decode func(json.RawMessage) (T, error)) Kind[T] {
	return Kind[T]{name: name, decode: decode}
}

func (k Kind[T]) Name() string { return k.name }

// Subscribe registers handler for k and returns its unsubscribe function.
// A frame whose payload does not decode into T is skipped for this handler.
func Subscribe[T any](c *Channel, k Kind[T], handler func(T)) func() {
	return c.subscribe(k.name, func(raw json.RawMessage) error {
		v, err := k.decode(raw)
		if err != nil {
			return err
		}
		handler(v)
		return nil
	})
}

type NotificationEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CourseID  string    `json:"course_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationReadEvent struct {
	ID string `json:"id"`
}

type AllReadEvent struct {
	ReadAt time.Time `json:"read_at"`
}

type PreferenceEvent struct {
	EventType string `json:"event_type"`
	Channel   string `json:"channel"`
	CourseID  string `json:"course_id,omitempty"`
	Enabled   bool   `json:"enabled"`
}

type CourseUpdatedEvent struct {
	CourseID string   `json:"course_id"`
	Fields   []string `json:"fields,omitempty"`
}

type AnnouncementEvent struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body,omitempty"`
	PostedAt time.Time `json:"posted_at"`
}

type SessionRevokedEvent struct {
	Reason string `json:"reason,omitempty"`
}

var (
	NotificationCreated  = NewKind[NotificationEvent]("notification.created")
	NotificationRead     = NewKind[NotificationReadEvent]("notification.read")
	NotificationsAllRead = NewKind[AllReadEvent]("notifications.read_all")
	PreferencesUpdated   = NewKind[PreferenceEvent]("preferences.updated")
	CourseUpdated        = NewKind[CourseUpdatedEvent]("course.updated")
	AnnouncementPosted   = NewKind[AnnouncementEvent]("announcement.posted")
	SessionRevoked       = NewKind[SessionRevokedEvent]("session.revoked")
)

// KnownEvents lists the event names the LMS backend emits.
func KnownEvents() []string {
	return []string{
		NotificationCreated.name,
		NotificationRead.name,
		NotificationsAllRead.name,
		PreferencesUpdated.name,
		CourseUpdated.name,
		AnnouncementPosted.name,
		SessionRevoked.name,
	}
}
