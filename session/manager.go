package session

import (
	"context"
	"sort"
	"sync"
)

// Manager owns the session [State]. All methods are safe for concurrent use.
//
// Observers registered with Subscribe are invoked after every state change,
// outside the state lock and serialized in change order. Observers must not
// call mutating Manager methods.
type Manager struct {
	store TokenStore

	mu    sync.RWMutex
	state State
	gen   uint64

	notifyMu  sync.Mutex
	observers map[uint64]func(State)
	nextObsID uint64
}

// NewManager returns a Manager in the loading state. A nil store keeps the
// token in memory only.
func NewManager(store TokenStore) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store:     store,
		state:     State{IsLoading: true},
		observers: make(map[uint64]func(State)),
	}
}

// Token returns the current access token, or "" when absent.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AccessToken
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Generation identifies the token currently held. It advances on every
// SetToken and Clear.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Load reads the persisted token into memory without authenticating it.
// It returns the token and its generation.
func (m *Manager) Load(ctx context.Context) (string, uint64, error) {
	token, err := m.store.Load(ctx)
	if err != nil {
		return "", 0, err
	}

	m.mu.Lock()
	m.gen++
	m.state.AccessToken = token
	m.state.IsAuthenticated = false
	m.state.User = nil
	gen := m.gen
	m.commitLocked()

	return token, gen, nil
}

// SetToken persists token and holds it unauthenticated until SetUser is called
// with the returned generation.
func (m *Manager) SetToken(ctx context.Context, token string) (uint64, error) {
	if token == "" {
		return 0, ErrEmptyToken
	}
	if err := m.store.Save(ctx, token); err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.gen++
	m.state.AccessToken = token
	m.state.IsAuthenticated = false
	m.state.User = nil
	gen := m.gen
	m.commitLocked()

	return gen, nil
}

// SetUser records a successful current-user fetch for generation gen and
// marks the session authenticated. It fails with ErrStaleGeneration when the
// token was replaced or cleared since gen was issued.
func (m *Manager) SetUser(gen uint64, u User) error {
	m.mu.Lock()
	if gen != m.gen || m.state.AccessToken == "" {
		m.mu.Unlock()
		return ErrStaleGeneration
	}
	m.state.User = u.clone()
	m.state.IsAuthenticated = true
	m.commitLocked()
	return nil
}

// Clear drops the in-memory session and the persisted token. The in-memory
// state is cleared even when the store fails; the store error is returned.
func (m *Manager) Clear(ctx context.Context) error {
	err := m.store.Clear(ctx)

	m.mu.Lock()
	wasEmpty := m.state.AccessToken == "" && m.state.User == nil && !m.state.IsAuthenticated
	m.gen++
	m.state.AccessToken = ""
	m.state.IsAuthenticated = false
	m.state.User = nil
	if wasEmpty {
		m.mu.Unlock()
		return err
	}
	m.commitLocked()

	return err
}

// BeginLoading marks the session as loading.
func (m *Manager) BeginLoading() {
	m.mu.Lock()
	if m.state.IsLoading {
		m.mu.Unlock()
		return
	}
	m.state.IsLoading = true
	m.commitLocked()
}

// FinishLoading marks the end of session restoration.
func (m *Manager) FinishLoading() {
	m.mu.Lock()
	if !m.state.IsLoading {
		m.mu.Unlock()
		return
	}
	m.state.IsLoading = false
	m.commitLocked()
}

// Subscribe registers fn for state changes and returns its unsubscribe function.
func (m *Manager) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}

	m.notifyMu.Lock()
	m.nextObsID++
	id := m.nextObsID
	m.observers[id] = fn
	m.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.notifyMu.Lock()
			delete(m.observers, id)
			m.notifyMu.Unlock()
		})
	}
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	s.User = m.state.User.clone()
	return s
}

// commitLocked must be called with mu held; it releases mu and notifies
// observers in order.
func (m *Manager) commitLocked() {
	snapshot := m.snapshotLocked()
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, fn := range m.orderedObservers() {
		fn(snapshot)
	}
}

func (m *Manager) orderedObservers() []func(State) {
	if len(m.observers) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, m.observers[id])
	}
	return out
}
