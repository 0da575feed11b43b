package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Board is a Sink that keeps the currently visible notices. Expired notices
// disappear on their own; Dismiss removes one early.
type Board struct {
	items *ttlcache.Cache[string, Notice]

	mu        sync.Mutex
	listeners map[uint64]func([]Notice)
	nextID    uint64
}

func NewBoard() *Board {
	return &Board{
		items:     ttlcache.New[string, Notice](ttlcache.WithDisableTouchOnHit[string, Notice]()),
		listeners: make(map[uint64]func([]Notice)),
	}
}

func (b *Board) Emit(_ context.Context, n Notice) {
	ttl := ttlcache.NoTTL
	if !n.ExpiresAt.IsZero() {
		ttl = time.Until(n.ExpiresAt)
		if ttl <= 0 {
			return
		}
	}
	b.items.Set(n.ID, n, ttl)
	b.changed()
}

// Active returns unexpired notices, oldest first.
func (b *Board) Active() []Notice {
	b.items.DeleteExpired()
	items := b.items.Items()
	out := make([]Notice, 0, len(items))
	for _, item := range items {
		out = append(out, item.Value())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dismiss removes the notice with id. Unknown ids are ignored.
func (b *Board) Dismiss(id string) {
	if !b.items.Has(id) {
		return
	}
	b.items.Delete(id)
	b.changed()
}

// OnChange registers fn to receive the active notices after each Emit or Dismiss.
func (b *Board) OnChange(fn func([]Notice)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *Board) changed() {
	b.mu.Lock()
	fns := make([]func([]Notice), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	active := b.Active()
	for _, fn := range fns {
		fn(active)
	}
}
