package goLMS

import (
	"context"
	"net/url"

	"github.com/MrEthical07/goLMS/cache"
	"github.com/MrEthical07/goLMS/request"
)

// PreferenceUpdateFailed is the notice raised when a preference write is
// rolled back.
const PreferenceUpdateFailed = "Failed to update notification preferences"

// NotificationUpdateFailed is the notice raised when marking notifications
// read is rolled back.
const NotificationUpdateFailed = "Failed to update notifications"

// NotificationPreferences returns the preference list through the cache.
// The returned slice is shared with the cache and must not be modified.
func (c *Client) NotificationPreferences(ctx context.Context, opts ...cache.QueryOption) ([]NotificationPreference, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return cache.Query(ctx, c.cache, PreferencesKey(), func(ctx context.Context) ([]NotificationPreference, error) {
		var out []NotificationPreference
		if err := c.api.Get(ctx, "/notifications/preferences", &out); err != nil {
			return nil, err
		}
		return out, nil
	}, opts...)
}

// UpdateNotificationPreference writes one preference optimistically. The
// cached entry with the same natural key shows the new value immediately;
// when the backend rejects the write the cached list is restored exactly
// and a notice is raised. Invalid input is returned as field errors without
// touching the cache.
//
// The write is not abandoned when ctx is canceled; it is bounded by
// API.Timeout so the cache always settles.
func (c *Client) UpdateNotificationPreference(ctx context.Context, pref NotificationPreference) (NotificationPreference, error) {
	if err := c.ensureAuthenticated(); err != nil {
		return NotificationPreference{}, err
	}
	if err := validateInput(pref); err != nil {
		return NotificationPreference{}, err
	}

	key := pref.NaturalKey()
	return cache.Mutate(ctx, c.cache, cache.Mutation[NotificationPreference]{
		Affected: []cache.Key{PreferencesKey()},
		Optimistic: cache.PatchSlice(
			func(p NotificationPreference) bool { return p.NaturalKey() == key },
			func(p NotificationPreference) NotificationPreference {
				p.Enabled = pref.Enabled
				return p
			},
		),
		Commit: func(ctx context.Context) (NotificationPreference, error) {
			ctx, cancel := c.commitContext(ctx)
			defer cancel()
			var saved NotificationPreference
			err := c.api.Put(ctx, "/notifications/preferences", pref, &saved)
			return saved, err
		},
		FailureMessage: PreferenceUpdateFailed,
	})
}

// Notifications returns the inbox, optionally only unread items, through
// the cache. The returned slice is shared with the cache and must not be
// modified.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool, opts ...cache.QueryOption) ([]Notification, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	} else {
		q.Set("unread", "false")
	}
	path := "/notifications?" + q.Encode()

	return cache.Query(ctx, c.cache, NotificationsKey(unreadOnly), func(ctx context.Context) ([]Notification, error) {
		var out []Notification
		if err := c.api.Get(ctx, path, &out); err != nil {
			return nil, err
		}
		return out, nil
	}, opts...)
}

// UnreadCount counts unread items in the cached unread list. Items marked
// read optimistically are not counted.
func (c *Client) UnreadCount(ctx context.Context, opts ...cache.QueryOption) (int, error) {
	items, err := c.Notifications(ctx, true, opts...)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

// MarkNotificationRead marks one notification read, matching it by ID in
// every cached inbox list before the request is sent.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if err := c.ensureAuthenticated(); err != nil {
		return err
	}
	if id == "" {
		return request.NewValidationError("", []request.FieldError{{Field: "id", Message: "This field is required."}})
	}

	_, err := cache.Mutate(ctx, c.cache, cache.Mutation[struct{}]{
		Affected: []cache.Key{NotificationsKey(false), NotificationsKey(true)},
		Optimistic: cache.PatchSlice(
			func(n Notification) bool { return n.ID == id && !n.Read },
			markRead,
		),
		Commit: func(ctx context.Context) (struct{}, error) {
			ctx, cancel := c.commitContext(ctx)
			defer cancel()
			return struct{}{}, c.api.Post(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
		},
		FailureMessage: NotificationUpdateFailed,
	})
	return err
}

// MarkAllNotificationsRead marks every cached notification read, then asks
// the backend to do the same.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	if err := c.ensureAuthenticated(); err != nil {
		return err
	}

	_, err := cache.Mutate(ctx, c.cache, cache.Mutation[struct{}]{
		Affected: []cache.Key{NotificationsKey(false), NotificationsKey(true)},
		Optimistic: cache.PatchSlice(
			func(n Notification) bool { return !n.Read },
			markRead,
		),
		Commit: func(ctx context.Context) (struct{}, error) {
			ctx, cancel := c.commitContext(ctx)
			defer cancel()
			return struct{}{}, c.api.Post(ctx, "/notifications/read-all", nil, nil)
		},
		FailureMessage: NotificationUpdateFailed,
	})
	return err
}

func markRead(n Notification) Notification {
	n.Read = true
	return n
}

// commitContext detaches an optimistic write from caller cancellation,
// bounds it by the API timeout and silences the generic transient notice;
// the mutation raises its own.
func (c *Client) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(request.Quiet(context.WithoutCancel(ctx)), c.config.API.Timeout)
}
