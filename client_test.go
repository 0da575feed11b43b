package goLMS

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goLMS/cache"
	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/middleware"
	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/request"
	"github.com/MrEthical07/goLMS/session"
	"github.com/gin-contrib/sse"
	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestLoginAuthenticatesOnlyAfterUserFetch(t *testing.T) {
	env := newTestEnv(t, nil)

	var (
		mu     sync.Mutex
		states []session.State
	)
	env.client.OnSessionChange(func(s session.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if d := middleware.Decide(env.client.Session(), env.client.Gate(), middleware.Requirement{}); d != middleware.Wait {
		t.Fatalf("decision before restore = %v, want wait", d)
	}

	env.login(t)

	s := env.client.Session()
	if !s.IsAuthenticated || s.IsLoading {
		t.Fatalf("session = %+v, want authenticated and settled", s)
	}
	if s.User == nil || s.User.Email != testUser || s.User.TenantID != "t-1" {
		t.Fatalf("user = %+v", s.User)
	}
	persisted, _ := env.store.Load(context.Background())
	if persisted == "" || persisted != s.AccessToken {
		t.Fatalf("persisted token %q does not match session token", persisted)
	}

	mu.Lock()
	sawPending := false
	for _, st := range states {
		if st.AccessToken != "" && !st.IsAuthenticated {
			sawPending = true
		}
		if st.IsAuthenticated && !sawPending {
			t.Fatal("authenticated before the token was held unauthenticated")
		}
	}
	mu.Unlock()
	if !sawPending {
		t.Fatal("expected an unauthenticated state holding the token")
	}

	if d := middleware.Decide(env.client.Session(), env.client.Gate(), middleware.Requirement{}); d != middleware.Allow {
		t.Fatalf("decision after login = %v, want allow", d)
	}

	select {
	case tok := <-env.backend.streamTokens:
		if tok != s.AccessToken {
			t.Fatalf("push token = %q, want session token", tok)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("push channel did not connect after login")
	}
	waitFor(t, "push open", func() bool { return env.client.Push().State() == channel.Open })

	snap := env.client.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success = %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricRequestSuccess] < 2 {
		t.Fatalf("request success = %d, want >= 2", snap.Counters[MetricRequestSuccess])
	}
}

func TestLoginInvalidCredentialsKeepsServerMessage(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.client.Login(context.Background(), testUser, "wrong")
	if err == nil {
		t.Fatal("expected login failure")
	}
	rerr, ok := request.AsError(err)
	if !ok {
		t.Fatalf("expected *request.Error, got %T", err)
	}
	if rerr.Message != "Invalid email or password" || rerr.HTTPStatus != 401 {
		t.Fatalf("error = %+v", rerr)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatal("expected ErrUnauthorized")
	}
	if env.client.Session().IsAuthenticated || env.client.Token() != "" {
		t.Fatal("session must stay unauthenticated")
	}
	if n := env.drainNotices(); len(n) != 0 {
		t.Fatalf("credential failures must not raise notices, got %+v", n)
	}
}

func TestLoginValidatesLocally(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.client.Login(context.Background(), "  ", "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	rerr, _ := request.AsError(err)
	if rerr.Field("username") == "" || rerr.Field("password") == "" {
		t.Fatalf("field errors = %+v", rerr.FieldErrors)
	}
	if env.backend.tokenCalls.Load() != 0 {
		t.Fatal("invalid input must not reach the backend")
	}
	if n := env.drainNotices(); len(n) != 0 {
		t.Fatalf("validation failures must not raise notices, got %+v", n)
	}
}

func TestUpdatePreferenceRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	before, err := env.client.NotificationPreferences(ctx)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	original := append([]NotificationPreference(nil), before...)

	env.backend.failPrefs.Store(true)
	gate := env.backend.holdPuts()

	done := make(chan error, 1)
	go func() {
		_, err := env.client.UpdateNotificationPreference(ctx, NotificationPreference{
			EventType: "assignment.due", Channel: "email", Enabled: true,
		})
		done <- err
	}()

	waitFor(t, "speculative patch", func() bool {
		snap := env.client.Cache().Peek(PreferencesKey())
		prefs, _ := snap.Data.([]NotificationPreference)
		return snap.Speculative && len(prefs) == 3 && prefs[0].Enabled
	})
	close(gate)

	if err := <-done; !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	snap := env.client.Cache().Peek(PreferencesKey())
	if snap.Speculative {
		t.Fatal("entry must not stay speculative after settle")
	}
	if got := snap.Data.([]NotificationPreference); !reflect.DeepEqual(got, original) {
		t.Fatalf("rollback mismatch:\n got %+v\nwant %+v", got, original)
	}

	notices := env.drainNotices()
	if len(notices) != 1 || notices[0].Message != PreferenceUpdateFailed {
		t.Fatalf("notices = %+v, want exactly %q", notices, PreferenceUpdateFailed)
	}
}

func TestUpdatePreferenceConfirmsStale(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	if _, err := env.client.NotificationPreferences(ctx); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	saved, err := env.client.UpdateNotificationPreference(ctx, NotificationPreference{
		EventType: "grade.posted", Channel: "email", CourseID: "c-101", Enabled: false,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.Enabled {
		t.Fatalf("saved = %+v", saved)
	}

	snap := env.client.Cache().Peek(PreferencesKey())
	if !snap.Stale || snap.Speculative {
		t.Fatalf("snapshot = %+v, want confirmed stale", snap)
	}

	gets := env.backend.prefGets.Load()
	prefs, err := env.client.NotificationPreferences(ctx)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if env.backend.prefGets.Load() != gets+1 {
		t.Fatal("stale entry should be refetched")
	}
	if prefs[2].Enabled {
		t.Fatalf("refetched prefs = %+v", prefs)
	}
}

func TestUpdatePreferenceValidatesLocally(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	_, err := env.client.UpdateNotificationPreference(context.Background(), NotificationPreference{Channel: "pigeon"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	rerr, _ := request.AsError(err)
	if rerr.Field("event_type") == "" || rerr.Field("channel") == "" {
		t.Fatalf("field errors = %+v", rerr.FieldErrors)
	}
	if env.client.Cache().Peek(PreferencesKey()).Present {
		t.Fatal("validation failure must not touch the cache")
	}
}

func TestUnauthorizedMidSessionClearsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	if _, err := env.client.Notifications(ctx, false); err != nil {
		t.Fatalf("notifications: %v", err)
	}
	waitFor(t, "push open", func() bool { return env.client.Push().State() == channel.Open })

	env.backend.revokeAll.Store(true)
	_, err := env.client.NotificationPreferences(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	s := env.client.Session()
	if s.IsAuthenticated || s.AccessToken != "" || s.User != nil {
		t.Fatalf("session = %+v, want cleared", s)
	}
	if tok, _ := env.store.Load(ctx); tok != "" {
		t.Fatalf("persisted token = %q, want cleared", tok)
	}
	if d := middleware.Decide(s, env.client.Gate(), middleware.Requirement{}); d != middleware.RedirectLogin {
		t.Fatalf("decision = %v, want redirect to login", d)
	}
	if env.client.Cache().Len() != 0 {
		t.Fatal("cache must be emptied on logout")
	}
	waitFor(t, "push closed", func() bool { return env.client.Push().State() == channel.Disconnected })

	if got := env.client.MetricsSnapshot().Counters[MetricUnauthorized]; got != 1 {
		t.Fatalf("unauthorized metric = %d, want 1", got)
	}
	if n := env.drainNotices(); len(n) != 0 {
		t.Fatalf("401 must not raise notices, got %+v", n)
	}
}

func TestLogoutIsLocalAndSynchronous(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	if err := env.client.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if env.client.Session().IsAuthenticated || env.client.Token() != "" {
		t.Fatal("session must be cleared when Logout returns")
	}
	if tok, _ := env.store.Load(context.Background()); tok != "" {
		t.Fatal("persisted token must be cleared when Logout returns")
	}
	if env.client.Push().State() != channel.Disconnected {
		t.Fatalf("push state = %v", env.client.Push().State())
	}
}

func TestRestoreSessionFromPersistedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	if err := env.store.Save(ctx, env.backend.token(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := env.client.RestoreSession(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	s := env.client.Session()
	if !s.IsAuthenticated || s.IsLoading || s.User.ID != "u-1" {
		t.Fatalf("session = %+v", s)
	}
	if got := env.client.MetricsSnapshot().Counters[MetricSessionRestored]; got != 1 {
		t.Fatalf("restored metric = %d", got)
	}
}

func TestRestoreSessionDiscardsExpiredJWTOffline(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Session.ExpiryLeeway = 0 })
	ctx := context.Background()

	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_ = env.store.Save(ctx, expired)

	if err := env.client.RestoreSession(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if env.backend.meCalls.Load() != 0 {
		t.Fatal("expired token must be discarded without a network call")
	}
	if tok, _ := env.store.Load(ctx); tok != "" {
		t.Fatal("expired token must be cleared")
	}
	s := env.client.Session()
	if s.IsAuthenticated || s.IsLoading {
		t.Fatalf("session = %+v", s)
	}
	if got := env.client.MetricsSnapshot().Counters[MetricSessionExpiredDiscarded]; got != 1 {
		t.Fatalf("discarded metric = %d", got)
	}
}

func TestRestoreSessionClearsRejectedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_ = env.store.Save(ctx, "opaque-token-from-elsewhere")

	err := env.client.RestoreSession(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tok, _ := env.store.Load(ctx); tok != "" {
		t.Fatal("rejected token must be cleared")
	}
	s := env.client.Session()
	if s.IsAuthenticated || s.IsLoading {
		t.Fatalf("session = %+v", s)
	}
}

func TestRestoreSessionWithoutToken(t *testing.T) {
	env := newTestEnv(t, nil)

	if err := env.client.RestoreSession(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if d := middleware.Decide(env.client.Session(), env.client.Gate(), middleware.Requirement{}); d != middleware.RedirectLogin {
		t.Fatalf("decision = %v, want redirect to login", d)
	}
	if env.backend.meCalls.Load() != 0 {
		t.Fatal("no user fetch without a token")
	}
}

func TestMarkNotificationReadOptimistic(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	if n, err := env.client.UnreadCount(ctx); err != nil || n != 2 {
		t.Fatalf("unread = %d, %v", n, err)
	}
	if err := env.client.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !env.client.Cache().Peek(NotificationsKey(true)).Stale {
		t.Fatal("unread list should be confirmed stale")
	}
	if n, err := env.client.UnreadCount(ctx); err != nil || n != 1 {
		t.Fatalf("unread after mark = %d, %v", n, err)
	}
}

func TestMarkAllNotificationsReadRollsBack(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.API.MaxRetries = 0 })
	env.login(t)
	ctx := context.Background()

	before, err := env.client.Notifications(ctx, false)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	original := append([]Notification(nil), before...)

	env.backend.failMarks.Store(true)
	if err := env.client.MarkAllNotificationsRead(ctx); !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	got := env.client.Cache().Peek(NotificationsKey(false)).Data.([]Notification)
	if !reflect.DeepEqual(got, original) {
		t.Fatalf("rollback mismatch:\n got %+v\nwant %+v", got, original)
	}

	notices := env.drainNotices()
	if len(notices) != 1 || notices[0].Message != NotificationUpdateFailed {
		t.Fatalf("notices = %+v", notices)
	}
}

func TestPushEventsInvalidateCache(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	if _, err := env.client.Notifications(ctx, false); err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if _, err := env.client.NotificationPreferences(ctx); err != nil {
		t.Fatalf("preferences: %v", err)
	}
	waitFor(t, "push open", func() bool { return env.client.Push().State() == channel.Open })

	env.backend.events <- sse.Event{Event: "notification.created", Data: map[string]any{
		"id": "n4", "type": "grade.posted", "title": "Midterm graded",
	}}
	waitFor(t, "notifications stale", func() bool {
		return env.client.Cache().Peek(NotificationsKey(false)).Stale
	})
	if env.client.Cache().Peek(PreferencesKey()).Stale {
		t.Fatal("preferences must not be invalidated by a notification event")
	}

	env.backend.events <- sse.Event{Event: "preferences.updated", Data: map[string]any{
		"event_type": "grade.posted", "channel": "email", "enabled": false,
	}}
	waitFor(t, "preferences stale", func() bool {
		return env.client.Cache().Peek(PreferencesKey()).Stale
	})

	waitFor(t, "push notice", func() bool {
		for _, n := range env.client.Notices().Active() {
			if n.Message == "Midterm graded" {
				return true
			}
		}
		return false
	})
}

func TestSessionRevokedEventLogsOut(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	waitFor(t, "push open", func() bool { return env.client.Push().State() == channel.Open })

	env.backend.events <- sse.Event{Event: "session.revoked", Data: map[string]string{"reason": "password_changed"}}

	waitFor(t, "logout", func() bool { return !env.client.Session().IsAuthenticated })
	if tok, _ := env.store.Load(context.Background()); tok != "" {
		t.Fatal("revocation must clear the persisted token")
	}
	waitFor(t, "push closed", func() bool { return env.client.Push().State() == channel.Disconnected })
	if got := env.client.MetricsSnapshot().Counters[MetricSessionRevoked]; got != 1 {
		t.Fatalf("revoked metric = %d", got)
	}
}

func TestPushReconnectKeepsSubscriptions(t *testing.T) {
	env := newTestEnv(t, nil)

	got := make(chan string, 4)
	unsub := channel.Subscribe(env.client.Push(), channel.AnnouncementPosted, func(ev channel.AnnouncementEvent) {
		got <- ev.Title
	})
	defer unsub()

	env.login(t)
	waitFor(t, "first connection", func() bool { return env.backend.streams.Load() == 1 })
	waitFor(t, "push open", func() bool { return env.client.Push().State() == channel.Open })

	env.backend.events <- dropStream
	waitFor(t, "reconnect", func() bool { return env.backend.streams.Load() == 2 })
	waitFor(t, "push reopened", func() bool { return env.client.Push().State() == channel.Open })

	env.backend.events <- sse.Event{Event: "announcement.posted", Data: map[string]string{"id": "a1", "course_id": "c-101", "title": "Room change"}}
	select {
	case title := <-got:
		if title != "Room change" {
			t.Fatalf("title = %q", title)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("subscription lost across reconnect")
	}

	snap := env.client.MetricsSnapshot()
	if snap.Counters[MetricChannelError] < 1 || snap.Counters[MetricChannelOpen] < 2 {
		t.Fatalf("channel metrics = %+v", snap.Counters)
	}
}

func TestAccessGateFollowsSession(t *testing.T) {
	env := newTestEnv(t, nil)

	if env.client.Can(ActionRead, ResourceCourse) || env.client.HasRole(RoleStudent) {
		t.Fatal("anonymous session must be denied")
	}
	env.login(t)

	if !env.client.HasRole(RoleStudent, RoleInstructor) {
		t.Fatal("student role expected")
	}
	if !env.client.Can(ActionRead, ResourceCourse) || !env.client.Can(ActionCreate, ResourceSubmission) {
		t.Fatal("student should read courses and submit work")
	}
	if env.client.Can(ActionGrade, ResourceSubmission) || env.client.Can(ActionDelete, ResourceCourse) {
		t.Fatal("student must not grade or delete")
	}
}

func TestDefaultPolicyPrecedence(t *testing.T) {
	gate, err := permission.NewGate(DefaultPolicy())
	if err != nil {
		t.Fatalf("gate: %v", err)
	}

	tests := []struct {
		roles    []string
		action   string
		resource string
		want     bool
	}{
		{[]string{RoleAdmin}, ActionDelete, ResourceCourse, true},
		{[]string{RoleAdmin}, "archive", "tenant", true},
		{[]string{RoleInstructor}, ActionGrade, ResourceSubmission, true},
		{[]string{RoleInstructor}, ActionDelete, ResourceCourse, false},
		{[]string{RoleTeachingAssistant}, ActionUpdate, ResourceGrade, true},
		{[]string{RoleTeachingAssistant}, ActionCreate, ResourceAssignment, false},
		{[]string{RoleStudent}, ActionRead, ResourceGrade, true},
		{[]string{RoleStudent}, ActionUpdate, ResourceGrade, false},
		{[]string{RoleStudent, RoleTeachingAssistant}, ActionGrade, ResourceSubmission, true},
		{[]string{"guest"}, ActionRead, ResourceCourse, false},
	}
	for _, tt := range tests {
		s := session.State{IsAuthenticated: true, AccessToken: "t", User: &session.User{ID: "u", Roles: tt.roles}}
		if got := gate.Can(subjectOf(s), tt.action, tt.resource); got != tt.want {
			t.Fatalf("Can(%v, %s, %s) = %v, want %v", tt.roles, tt.action, tt.resource, got, tt.want)
		}
	}
}

func TestQueriesCoalesceAndServeFresh(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.client.Notifications(ctx, true); err != nil {
				t.Errorf("notifications: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, err := env.client.Notifications(ctx, true); err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if got := env.backend.noteGets.Load(); got < 1 || got > 2 {
		t.Fatalf("backend fetches = %d, want coalesced", got)
	}

	env.client.Cache().Invalidate(NotificationsKey(true))
	if _, err := env.client.Notifications(ctx, true, cache.Background()); err != nil {
		t.Fatalf("background read: %v", err)
	}
	waitFor(t, "background refresh", func() bool {
		return !env.client.Cache().Peek(NotificationsKey(true)).Stale
	})
}
