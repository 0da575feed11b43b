package cache

import (
	"context"

	"github.com/jellydator/ttlcache/v3"
)

// Patch transforms the data of one entry. It reports false when nothing
// matched, in which case the entry is left untouched.
type Patch func(data any) (any, bool)

// Mutation describes one optimistic write.
type Mutation[R any] struct {
	// Affected keys are snapshotted, patched and settled.
	Affected []Key
	// Optimistic is applied to every present affected entry before Commit.
	Optimistic Patch
	// Commit performs the network call.
	Commit func(ctx context.Context) (R, error)
	// AlsoInvalidate keys are marked stale on success only.
	AlsoInvalidate []Key
	// FailureMessage is raised as a notice when Commit fails.
	FailureMessage string
}

type pendingMutation struct {
	gen  uint64
	keys []Key
}

// Mutate runs m: snapshot, speculative patch, Commit, then exactly one
// settle step. Settling does not depend on ctx, so a canceled caller still
// leaves the cache confirmed stale or rolled back.
//
// Mutations overlapping on one key share the snapshot taken by the first of
// them, and only the last to settle resolves the entry: it is restored when
// every overlapping mutation failed and marked stale otherwise.
func Mutate[R any](ctx context.Context, s *Store, m Mutation[R]) (result R, err error) {
	if m.Commit == nil {
		return result, ErrNoCommit
	}

	p := s.begin(m.Affected, m.Optimistic)
	settled := false
	defer func() {
		if settled {
			return
		}
		if r := recover(); r != nil {
			s.rollback(p, "")
			panic(r)
		}
	}()

	result, err = m.Commit(ctx)
	settled = true
	if err != nil {
		s.rollback(p, m.FailureMessage)
		return result, err
	}
	s.confirm(p, m.AlsoInvalidate)
	return result, nil
}

func (s *Store) begin(keys []Key, patch Patch) *pendingMutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &pendingMutation{gen: s.gen, keys: dedupe(keys)}
	for _, key := range p.keys {
		item := s.items.Get(key)
		s.bumpLocked(key)

		f := s.inflight[key]
		if f == nil {
			f = &inflight{}
			if item != nil {
				f.present = true
				f.base = item.Value()
			}
			s.inflight[key] = f
		}
		f.count++

		if item == nil || patch == nil {
			continue
		}
		e := item.Value()
		next, ok := patch(e.data)
		if !ok {
			continue
		}
		e.data = next
		e.speculative = true
		s.items.Set(key, e, ttlcache.PreviousOrDefaultTTL)
	}
	return p
}

func (s *Store) confirm(p *pendingMutation, extra []Key) {
	s.mu.Lock()
	if p.gen != s.gen {
		s.mu.Unlock()
		return
	}
	for _, key := range p.keys {
		s.settleLocked(key, true)
	}
	for _, key := range extra {
		s.markStaleLocked(key)
	}
	s.mu.Unlock()

	for _, key := range p.keys {
		s.emit(EventCommit, key)
	}
	for _, key := range extra {
		s.emit(EventInvalidate, key)
	}
}

func (s *Store) rollback(p *pendingMutation, message string) {
	s.mu.Lock()
	if p.gen == s.gen {
		for _, key := range p.keys {
			s.settleLocked(key, false)
		}
	}
	s.mu.Unlock()

	for _, key := range p.keys {
		s.emit(EventRollback, key)
	}
	s.notify(message)
}

// settleLocked records one mutation on key as settled. The last one to
// settle clears the speculative flag.
func (s *Store) settleLocked(key Key, ok bool) {
	s.bumpLocked(key)
	f := s.inflight[key]
	if f == nil {
		return
	}
	if ok {
		f.dirty = true
	}
	f.count--
	if f.count > 0 {
		return
	}
	delete(s.inflight, key)

	if !ok && !f.dirty {
		if f.present {
			s.items.Set(key, f.base, ttlcache.PreviousOrDefaultTTL)
		} else {
			s.items.Delete(key)
		}
		return
	}
	item := s.items.Get(key, ttlcache.WithDisableTouchOnHit[Key, entry]())
	if item == nil {
		return
	}
	e := item.Value()
	e.speculative = false
	e.stale = true
	s.items.Set(key, e, ttlcache.PreviousOrDefaultTTL)
}

func dedupe(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// PatchSlice returns a Patch for []T data that replaces every element
// matching match with patch(element). Non-[]T data and slices without a match
// are left untouched. The original slice is never modified.
func PatchSlice[T any](match func(T) bool, patch func(T) T) Patch {
	return func(data any) (any, bool) {
		items, ok := data.([]T)
		if !ok {
			return data, false
		}
		var out []T
		for i, item := range items {
			if !match(item) {
				continue
			}
			if out == nil {
				out = append([]T(nil), items...)
			}
			out[i] = patch(item)
		}
		if out == nil {
			return data, false
		}
		return out, true
	}
}

// PatchValue returns a Patch for data of type T.
func PatchValue[T any](patch func(T) T) Patch {
	return func(data any) (any, bool) {
		v, ok := data.(T)
		if !ok {
			return data, false
		}
		return patch(v), true
	}
}
