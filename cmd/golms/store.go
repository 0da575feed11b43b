package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goLMS/session"
)

// memRedis selects an in-process miniredis, handy for trying the Redis store
// without a server. The token does not outlive the process.
const memRedis = "mem"

// openStore picks the token store: Redis when an address is set, the token
// file otherwise. The returned cleanup must always be called.
func openStore(ctx context.Context, s settings) (session.TokenStore, func(), error) {
	if s.Redis == "" {
		return session.NewFileStore(s.TokenFile), func() {}, nil
	}

	var (
		addr string
		mr   *miniredis.Miniredis
	)
	if s.Redis == memRedis {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
	} else {
		addr = s.Redis
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	store := session.NewRedisStore(client, "golms", "access_token", 30*24*time.Hour)
	if _, err := store.Ping(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}
