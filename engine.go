package goLMS

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goLMS/cache"
	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/request"
	"github.com/MrEthical07/goLMS/session"
	"github.com/golang/glog"
)

// Client is the LMS frontend core: session state, API access, the push
// channel, the query cache, the notice board and the access gate.
//
// All methods are safe for concurrent use.
type Client struct {
	config   Config
	sessions *session.Manager
	api      *request.Client
	push     *channel.Channel
	cache    *cache.Store
	notices  *notify.Dispatcher
	board    *notify.Board
	gate     *permission.Gate
	metrics  *Metrics

	// wasAuthenticated tracks the last session transition seen by onSession.
	wasAuthenticated atomic.Bool

	unsubs    []func()
	closed    atomic.Bool
	closeOnce sync.Once
}

type clientDeps struct {
	store        session.TokenStore
	httpClient   *http.Client
	transport    channel.Transport
	sink         notify.Sink
	gate         *permission.Gate
	interceptors []request.Interceptor
}

func newClient(cfg Config, deps clientDeps) (*Client, error) {
	c := &Client{
		config:  cfg,
		gate:    deps.gate,
		metrics: NewMetrics(cfg.Metrics),
		board:   notify.NewBoard(),
	}

	var sink notify.Sink = c.board
	if deps.sink != nil {
		sink = notify.MultiSink{c.board, deps.sink}
	}
	c.notices = notify.NewDispatcher(cfg.Notify, sink)
	c.sessions = session.NewManager(deps.store)

	opts := []request.Option{
		request.WithNotifier(c.notices),
		request.WithUnauthorizedHandler(c.onUnauthorized),
		request.WithCompletionHook(c.onRequestComplete),
	}
	if deps.httpClient != nil {
		opts = append(opts, request.WithHTTPClient(deps.httpClient))
	}
	if len(deps.interceptors) > 0 {
		opts = append(opts, request.WithInterceptor(deps.interceptors...))
	}
	api, err := request.New(cfg.API, c.sessions, opts...)
	if err != nil {
		c.notices.Close()
		return nil, err
	}
	c.api = api

	store, err := cache.New(cfg.Cache,
		cache.WithNotifier(c.notices),
		cache.WithObserver(c.onCacheEvent),
	)
	if err != nil {
		c.notices.Close()
		return nil, err
	}
	c.cache = store

	push, err := channel.New(cfg.channelConfig(), c.sessions,
		channel.WithTransport(pushTransport(cfg.Push.Transport, deps)),
	)
	if err != nil {
		c.cache.Close()
		c.notices.Close()
		return nil, err
	}
	c.push = push

	c.unsubs = append(c.unsubs,
		c.push.OnStateChange(c.onChannelState),
		c.push.OnError(func(err error) {
			glog.V(1).Infof("goLMS: push channel error: %v", err)
		}),
	)
	c.unsubs = append(c.unsubs, c.wirePushInvalidation()...)
	c.unsubs = append(c.unsubs, c.sessions.Subscribe(c.onSession))

	c.cache.Start()
	return c, nil
}

func pushTransport(kind string, deps clientDeps) channel.Transport {
	if deps.transport != nil {
		return deps.transport
	}
	if kind == TransportWebSocket {
		return channel.WebSocketTransport{}
	}
	var hc *http.Client
	if deps.httpClient != nil {
		streaming := *deps.httpClient
		streaming.Timeout = 0
		hc = &streaming
	}
	return channel.SSETransport{Client: hc}
}

// Close closes the push channel, stops cache eviction and drains pending
// notices. The session and its persisted token are left untouched.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		for _, unsub := range c.unsubs {
			unsub()
		}
		c.push.Close()
		c.cache.Close()
		c.notices.Close()
	})
}

func (c *Client) ready() error {
	if c == nil || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// Session returns a copy of the current session state.
func (c *Client) Session() session.State {
	if c == nil {
		return session.State{IsLoading: true}
	}
	return c.sessions.State()
}

// Token returns the current access token, or "".
func (c *Client) Token() string {
	if c == nil {
		return ""
	}
	return c.sessions.Token()
}

// OnSessionChange registers fn for session transitions. fn must not call
// Login, Logout or RestoreSession.
func (c *Client) OnSessionChange(fn func(session.State)) func() {
	return c.sessions.Subscribe(fn)
}

// API exposes the request client for endpoints without a typed wrapper.
func (c *Client) API() *request.Client {
	return c.api
}

// Push exposes the push channel for custom event subscriptions.
func (c *Client) Push() *channel.Channel {
	return c.push
}

// Cache exposes the query cache.
func (c *Client) Cache() *cache.Store {
	return c.cache
}

// Notices returns the board of currently visible notices.
func (c *Client) Notices() *notify.Board {
	return c.board
}

// Notify raises a notice through the client's dispatcher.
func (c *Client) Notify(ctx context.Context, n notify.Notice) {
	if c == nil {
		return
	}
	c.notices.Notify(ctx, n)
}

// NoticesDropped reports notices lost to dispatcher backpressure.
func (c *Client) NoticesDropped() uint64 {
	if c == nil || c.notices == nil {
		return 0
	}
	return c.notices.Dropped()
}

// MetricsSnapshot returns the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

/*
====================================
COMPONENT HOOKS
====================================
*/

// onSession opens the push channel when the session becomes authenticated
// and tears down per-user state when it stops being so.
func (c *Client) onSession(s session.State) {
	was := c.wasAuthenticated.Load()
	switch {
	case s.IsAuthenticated && !was:
		c.wasAuthenticated.Store(true)
		if c.config.Push.ConnectOnLogin {
			if err := c.push.Connect(); err != nil {
				glog.Warningf("goLMS: push connect after login: %v", err)
			}
		}
	case !s.IsAuthenticated && was:
		c.wasAuthenticated.Store(false)
		c.push.Close()
		c.cache.Clear()
	}
}

// onUnauthorized runs once per failing call that received a 401. The
// persisted token is dropped; navigation is left to route guards.
func (c *Client) onUnauthorized() {
	if c.sessions.Token() == "" {
		return
	}
	c.metricInc(MetricUnauthorized)
	if err := c.sessions.Clear(context.Background()); err != nil {
		glog.Warningf("goLMS: clearing token after 401: %v", err)
	}
}

func (c *Client) onRequestComplete(done request.Completion) {
	if c.metrics == nil {
		return
	}
	if done.Kind == request.KindUnknown {
		c.metrics.Inc(MetricRequestSuccess)
	} else {
		c.metrics.Inc(MetricRequestFailure)
		if done.Kind == request.KindTransient {
			c.metrics.Inc(MetricRequestTransient)
		}
	}
	if done.Attempts > 1 {
		c.metrics.Add(MetricRequestRetried, uint64(done.Attempts-1))
	}
	c.metrics.Observe(MetricRequestLatency, done.Latency)
}

func (c *Client) onCacheEvent(kind cache.EventKind, _ cache.Key) {
	switch kind {
	case cache.EventHit:
		c.metricInc(MetricCacheHit)
	case cache.EventMiss:
		c.metricInc(MetricCacheMiss)
	case cache.EventFetch:
		c.metricInc(MetricCacheFetch)
	case cache.EventFetchError:
		c.metricInc(MetricCacheFetchError)
	case cache.EventInvalidate:
		c.metricInc(MetricCacheInvalidate)
	case cache.EventCommit:
		c.metricInc(MetricMutationCommit)
	case cache.EventRollback:
		c.metricInc(MetricMutationRollback)
	case cache.EventEvict:
		c.metricInc(MetricCacheEvict)
	}
}

func (c *Client) onChannelState(s channel.State) {
	switch s {
	case channel.Connecting:
		c.metricInc(MetricChannelConnecting)
	case channel.Open:
		c.metricInc(MetricChannelOpen)
	case channel.Erroring:
		c.metricInc(MetricChannelError)
	case channel.Disconnected:
		c.metricInc(MetricChannelClosed)
	}
}
