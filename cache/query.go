package cache

import (
	"context"
	"time"

	"github.com/golang/glog"
)

type queryOptions struct {
	background bool
	force      bool
	staleTime  time.Duration
	hasStale   bool
}

type QueryOption func(*queryOptions)

// Background returns stale cached data immediately and refreshes it behind
// the caller. Missing data is still fetched in the foreground.
func Background() QueryOption {
	return func(o *queryOptions) { o.background = true }
}

// ForceRefresh ignores cached data and fetches.
func ForceRefresh() QueryOption {
	return func(o *queryOptions) { o.force = true }
}

// StaleAfter overrides the store's StaleTime for one read.
func StaleAfter(d time.Duration) QueryOption {
	return func(o *queryOptions) {
		o.staleTime = d
		o.hasStale = true
	}
}

// Query reads key through the cache. Fresh data, and data under a pending
// mutation, is returned without calling fetch.
func Query[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error), opts ...QueryOption) (T, error) {
	o := queryOptions{staleTime: s.cfg.StaleTime}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if e, ok, pending := s.lookup(key); ok && !o.force {
		if cached, typed := e.data.(T); typed {
			fresh := !e.stale && s.now().Sub(e.fetchedAt) < o.staleTime
			if fresh || pending {
				s.emit(EventHit, key)
				return cached, nil
			}
			if o.background {
				s.emit(EventHit, key)
				go func() {
					if _, err := fetchShared(context.WithoutCancel(ctx), s, key, fetch); err != nil {
						glog.V(2).Infof("cache: background refresh of %s failed: %v", key, err)
					}
				}()
				return cached, nil
			}
		}
	}

	s.emit(EventMiss, key)
	return fetchShared(ctx, s, key, fetch)
}

// fetchShared coalesces concurrent fetches of key. A result that lost a race
// with a write to key is returned to the caller but not cached.
func fetchShared[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		version := s.versionOf(key)
		started := s.now()
		data, err := fetch(ctx)
		if err != nil {
			s.emit(EventFetchError, key)
			return nil, err
		}
		s.emit(EventFetch, key)
		if !s.storeFetched(key, data, version, started) {
			glog.V(2).Infof("cache: dropped superseded fetch of %s", key)
		}
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}
