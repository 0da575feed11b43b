package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goLMS/notify"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// EventKind is reported to the store observer.
type EventKind uint8

const (
	EventHit EventKind = iota + 1
	EventMiss
	EventFetch
	EventFetchError
	EventInvalidate
	EventCommit
	EventRollback
	EventEvict
)

// inflight tracks the mutations pending on one key. base is the entry the
// first of them found. dirty is set once a confirm, Set or invalidation means
// base no longer matches the server.
type inflight struct {
	count   int
	present bool
	base    entry
	dirty   bool
}

type entry struct {
	data        any
	fetchedAt   time.Time
	stale       bool
	speculative bool
}

// Snapshot is a read-only view of one entry.
type Snapshot struct {
	Data        any
	Present     bool
	FetchedAt   time.Time
	Stale       bool
	Speculative bool
}

type Option func(*Store)

// WithNotifier sets where mutation failure notices go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithObserver receives every cache event. It must not block.
func WithObserver(fn func(EventKind, Key)) Option {
	return func(s *Store) { s.observe = fn }
}

// WithClock replaces time.Now for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store holds cache entries. The zero value is not usable; call New.
type Store struct {
	cfg      Config
	items    *ttlcache.Cache[Key, entry]
	group    singleflight.Group
	notifier notify.Notifier
	observe  func(EventKind, Key)
	now      func() time.Time

	// mu serializes read-modify-write of entries and mutation bookkeeping.
	mu       sync.Mutex
	inflight map[Key]*inflight
	versions map[Key]uint64
	seq      uint64
	gen      uint64

	started   atomic.Bool
	closeOnce sync.Once
	stopEvict func()
}

// New returns a Store. Call Start to begin evicting idle entries.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		cfg:     cfg,
		items:   ttlcache.New[Key, entry](ttlcache.WithTTL[Key, entry](cfg.GCTime)),
		now:      time.Now,
		inflight: make(map[Key]*inflight),
		versions: make(map[Key]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.stopEvict = s.items.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[Key, entry]) {
		if reason == ttlcache.EvictionReasonExpired {
			s.emit(EventEvict, item.Key())
		}
	})
	return s, nil
}

// Start runs idle-entry eviction until Close.
func (s *Store) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.items.Start()
}

func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.started.Load() {
			s.items.Stop()
		}
		s.stopEvict()
	})
}

// Get returns the cached data for key and refreshes its idle timer.
func (s *Store) Get(key Key) (any, bool) {
	item := s.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value().data, true
}

// Peek inspects key without refreshing its idle timer.
func (s *Store) Peek(key Key) Snapshot {
	item := s.items.Get(key, ttlcache.WithDisableTouchOnHit[Key, entry]())
	if item == nil {
		return Snapshot{}
	}
	e := item.Value()
	return Snapshot{
		Data:        e.data,
		Present:     true,
		FetchedAt:   e.fetchedAt,
		Stale:       e.stale,
		Speculative: e.speculative,
	}
}

// Set stores authoritative data for key as freshly fetched.
func (s *Store) Set(key Key, data any) {
	s.mu.Lock()
	s.touchLocked(key)
	s.items.Set(key, entry{data: data, fetchedAt: s.now()}, ttlcache.DefaultTTL)
	s.mu.Unlock()
}

// Invalidate marks keys stale; the next read refetches them.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	for _, key := range keys {
		s.markStaleLocked(key)
	}
	s.mu.Unlock()
	for _, key := range keys {
		s.emit(EventInvalidate, key)
	}
}

// InvalidateResource marks every key of resource stale.
func (s *Store) InvalidateResource(resource string) {
	var keys []Key
	for _, key := range s.items.Keys() {
		if key.Resource == resource {
			keys = append(keys, key)
		}
	}
	s.Invalidate(keys...)
}

func (s *Store) Remove(key Key) {
	s.mu.Lock()
	s.touchLocked(key)
	s.items.Delete(key)
	s.mu.Unlock()
}

// Clear drops every entry. Mutations still in flight settle without touching
// the cleared store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.gen++
	s.inflight = make(map[Key]*inflight)
	s.versions = make(map[Key]uint64)
	s.items.DeleteAll()
	s.mu.Unlock()
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.items.Len()
}

// touchLocked records a write to key. Fetches that started before it are
// not stored, and pending mutations no longer restore their base.
func (s *Store) touchLocked(key Key) {
	s.bumpLocked(key)
	if f := s.inflight[key]; f != nil {
		f.dirty = true
	}
}

func (s *Store) bumpLocked(key Key) {
	s.seq++
	s.versions[key] = s.seq
}

func (s *Store) markStaleLocked(key Key) {
	s.touchLocked(key)
	item := s.items.Get(key, ttlcache.WithDisableTouchOnHit[Key, entry]())
	if item == nil {
		return
	}
	e := item.Value()
	e.stale = true
	s.items.Set(key, e, ttlcache.PreviousOrDefaultTTL)
}

// lookup returns the entry for key and whether a mutation on it is pending.
func (s *Store) lookup(key Key) (e entry, ok bool, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.items.Get(key)
	if item == nil {
		return entry{}, false, s.inflight[key] != nil
	}
	return item.Value(), true, s.inflight[key] != nil
}

// fetchVersion identifies the state of key a fetch started from.
type fetchVersion struct {
	gen uint64
	key uint64
}

func (s *Store) versionOf(key Key) fetchVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fetchVersion{gen: s.gen, key: s.versions[key]}
}

// storeFetched records a fetch result unless key was written, mutated or
// cleared since the fetch began.
func (s *Store) storeFetched(key Key, data any, v fetchVersion, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.gen != s.gen || v.key != s.versions[key] || s.inflight[key] != nil {
		return false
	}
	s.items.Set(key, entry{data: data, fetchedAt: at}, ttlcache.DefaultTTL)
	return true
}

func (s *Store) emit(kind EventKind, key Key) {
	if s.observe != nil {
		s.observe(kind, key)
	}
}

func (s *Store) notify(message string) {
	if s.notifier == nil || message == "" {
		return
	}
	s.notifier.Notify(context.Background(), notify.Error("cache", message))
}
