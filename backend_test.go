package goLMS

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goLMS/jwt"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/MrEthical07/goLMS/session"
	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi/v5"
)

const (
	testUser     = "ada@lms.test"
	testPassword = "correct-horse"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type claimsKey struct{}

// fakeBackend serves the LMS endpoints the client talks to.
type fakeBackend struct {
	*httptest.Server
	signer *jwt.Signer

	mu    sync.Mutex
	prefs []NotificationPreference
	notes []Notification
	roles []string
	// putGate, when set, holds PUT /notifications/preferences until closed.
	putGate chan struct{}

	failPrefs  atomic.Bool
	failMarks  atomic.Bool
	revokeAll  atomic.Bool
	tokenCalls atomic.Int32
	meCalls    atomic.Int32
	prefGets   atomic.Int32
	noteGets   atomic.Int32
	streams    atomic.Int32

	events       chan sse.Event
	streamTokens chan string
}

var dropStream = sse.Event{Event: "__drop__"}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	signer, err := jwt.NewSigner(jwt.SignerConfig{Secret: testSecret, AccessTTL: time.Hour, Issuer: "lms-test"})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	b := &fakeBackend{
		signer: signer,
		roles:  []string{RoleStudent},
		prefs: []NotificationPreference{
			{EventType: "assignment.due", Channel: "email", Enabled: false},
			{EventType: "assignment.due", Channel: "in_app", Enabled: true},
			{EventType: "grade.posted", Channel: "email", CourseID: "c-101", Enabled: true},
		},
		notes: []Notification{
			{ID: "n1", Type: "grade.posted", Title: "Quiz 1 graded", CreatedAt: time.Unix(1700000000, 0).UTC()},
			{ID: "n2", Type: "assignment.due", Title: "Essay due", CreatedAt: time.Unix(1700000100, 0).UTC()},
			{ID: "n3", Type: "announcement", Title: "Welcome", Read: true, CreatedAt: time.Unix(1700000200, 0).UTC()},
		},
		events:       make(chan sse.Event, 16),
		streamTokens: make(chan string, 16),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", b.issueToken)
		r.Get("/notifications/stream", b.stream)
		r.Group(func(r chi.Router) {
			r.Use(b.requireBearer)
			r.Get("/users/me", b.me)
			r.Get("/notifications/preferences", b.listPrefs)
			r.Put("/notifications/preferences", b.putPref)
			r.Get("/notifications", b.listNotes)
			r.Post("/notifications/read-all", b.readAll)
			r.Post("/notifications/{id}/read", b.readOne)
		})
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) holdPuts() chan struct{} {
	gate := make(chan struct{})
	b.mu.Lock()
	b.putGate = gate
	b.mu.Unlock()
	return gate
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) token(t *testing.T) string {
	t.Helper()
	tok, err := b.signer.Issue("u-1", testUser, "t-1", b.roles)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (b *fakeBackend) issueToken(w http.ResponseWriter, r *http.Request) {
	b.tokenCalls.Add(1)
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantType != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bad request"})
		return
	}
	if req.Username != testUser || req.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password", "code": "invalid_credentials"})
		return
	}
	b.mu.Lock()
	roles := append([]string(nil), b.roles...)
	b.mu.Unlock()
	tok, err := b.signer.Issue("u-1", req.Username, "t-1", roles)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresIn: int64(b.signer.TTL().Seconds())})
}

func (b *fakeBackend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || b.revokeAll.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session expired"})
			return
		}
		claims, err := b.signer.Verify(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session expired"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)
	claims := r.Context().Value(claimsKey{}).(*jwt.Claims)
	writeJSON(w, http.StatusOK, session.User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Name:     "Ada Lovelace",
		Roles:    claims.Roles,
		TenantID: claims.TenantID,
	})
}

func (b *fakeBackend) listPrefs(w http.ResponseWriter, _ *http.Request) {
	b.prefGets.Add(1)
	b.mu.Lock()
	out := append([]NotificationPreference(nil), b.prefs...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) putPref(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	gate := b.putGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if b.failPrefs.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "database unavailable"})
		return
	}
	var p NotificationPreference
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bad request"})
		return
	}
	b.mu.Lock()
	for i := range b.prefs {
		if b.prefs[i].NaturalKey() == p.NaturalKey() {
			b.prefs[i] = p
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (b *fakeBackend) listNotes(w http.ResponseWriter, r *http.Request) {
	b.noteGets.Add(1)
	unread := r.URL.Query().Get("unread") == "true"
	b.mu.Lock()
	out := make([]Notification, 0, len(b.notes))
	for _, n := range b.notes {
		if unread && n.Read {
			continue
		}
		out = append(out, n)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) readOne(w http.ResponseWriter, r *http.Request) {
	if b.failMarks.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "try later"})
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	for i := range b.notes {
		if b.notes[i].ID == id {
			b.notes[i].Read = true
		}
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) readAll(w http.ResponseWriter, _ *http.Request) {
	if b.failMarks.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "try later"})
		return
	}
	b.mu.Lock()
	for i := range b.notes {
		b.notes[i].Read = true
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) stream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := b.signer.Verify(token); err != nil || b.revokeAll.Load() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session expired"})
		return
	}
	b.streams.Add(1)
	b.streamTokens <- token

	w.Header().Set("Content-Type", sse.ContentType)
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-b.events:
			if ev.Event == dropStream.Event {
				return
			}
			if err := sse.Encode(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type testEnv struct {
	backend *fakeBackend
	client  *Client
	store   *session.MemoryStore
	sink    *notify.ChannelSink
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	b := newFakeBackend(t)

	cfg := DefaultConfig()
	cfg.API.Origin = b.URL
	cfg.API.RetryBackoff = time.Millisecond
	cfg.Push.ReconnectDelay = 50 * time.Millisecond
	cfg.Metrics.EnableLatencyHistograms = true
	if mutate != nil {
		mutate(&cfg)
	}

	store := session.NewMemoryStore()
	sink := notify.NewChannelSink(32)
	c, err := New().
		WithConfig(cfg).
		WithTokenStore(store).
		WithNotifySink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(c.Close)

	return &testEnv{backend: b, client: c, store: store, sink: sink}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	if err := e.client.Login(context.Background(), testUser, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
}

// drainNotices closes the client, which flushes the dispatcher, and returns
// every notice delivered.
func (e *testEnv) drainNotices() []notify.Notice {
	e.client.Close()
	var out []notify.Notice
	for {
		select {
		case n := <-e.sink.Notices():
			out = append(out, n)
		default:
			return out
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
