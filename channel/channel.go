package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
)

// TokenSource reports the current access token, or "" when absent.
type TokenSource interface {
	Token() string
}

type Option func(*Channel)

// WithTransport replaces the default SSETransport.
func WithTransport(t Transport) Option {
	return func(c *Channel) {
		if t != nil {
			c.transport = t
		}
	}
}

type handler struct {
	id uint64
	fn func(json.RawMessage) error
}

// conn is the handle of one physical connection attempt.
type conn struct {
	cancel context.CancelFunc
	stream Stream
}

// Channel is a reconnecting push connection. All methods are safe for
// concurrent use. State and error observers run outside the channel lock,
// serialized in transition order; they must not call Connect or Close.
type Channel struct {
	cfg       Config
	tokens    TokenSource
	transport Transport

	mu      sync.Mutex
	state   State
	conn    *conn
	timer   *time.Timer
	epoch   uint64
	nextID  uint64
	subs    map[string][]handler
	general func(json.RawMessage)
	genID   uint64
	stateFn map[uint64]func(State)
	errorFn map[uint64]func(error)

	notifyMu sync.Mutex
}

// New validates cfg and returns a disconnected Channel.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: nil token source", ErrInvalidConfig)
	}
	c := &Channel{
		cfg:       cfg,
		tokens:    tokens,
		transport: SSETransport{},
		subs:      make(map[string][]handler),
		stateFn:   make(map[uint64]func(State)),
		errorFn:   make(map[uint64]func(error)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the connection if none exists. It returns ErrNoToken when the
// token is absent and does nothing while a connection is dialing or open.
// Dial failures are reported through OnError, never here.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	token := c.tokens.Token()
	if token == "" {
		c.mu.Unlock()
		return ErrNoToken
	}
	url, err := c.cfg.urlWithToken(token)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.stopTimerLocked()
	c.startLocked(url)
	return nil
}

// Close tears down the connection and cancels a pending reconnect. The
// channel stays disconnected until Connect is called again.
func (c *Channel) Close() {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	h := c.conn
	c.conn = nil
	var stream Stream
	if h != nil {
		stream = h.stream
	}
	changed := c.state != Disconnected
	c.state = Disconnected
	if h != nil {
		h.cancel()
	}
	if changed {
		glog.V(2).Infof("channel: closed")
		c.emitLocked(Disconnected, nil)
	} else {
		c.mu.Unlock()
	}
	if stream != nil {
		_ = stream.Close()
	}
}

// OnMessage sets the general handler for unnamed frames. The last call wins.
// The returned function clears it if it is still the current handler.
func (c *Channel) OnMessage(fn func(json.RawMessage)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.general = fn
	c.genID = id
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if c.genID == id {
			c.general = nil
		}
		c.mu.Unlock()
	}
}

// SubscribeRaw registers fn for frames named event.
func (c *Channel) SubscribeRaw(event string, fn func(json.RawMessage)) func() {
	return c.subscribe(event, func(raw json.RawMessage) error {
		fn(raw)
		return nil
	})
}

func (c *Channel) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.stateFn[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.stateFn, id)
		c.mu.Unlock()
	}
}

func (c *Channel) OnError(fn func(error)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.errorFn[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.errorFn, id)
		c.mu.Unlock()
	}
}

func (c *Channel) subscribe(event string, fn func(json.RawMessage) error) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[event] = append(c.subs[event], handler{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			hs := c.subs[event]
			for i, h := range hs {
				if h.id == id {
					c.subs[event] = append(hs[:i:i], hs[i+1:]...)
					break
				}
			}
			if len(c.subs[event]) == 0 {
				delete(c.subs, event)
			}
		})
	}
}

// startLocked must be called with mu held; it releases mu.
func (c *Channel) startLocked(url string) {
	c.epoch++
	ctx, cancel := context.WithCancel(context.Background())
	h := &conn{cancel: cancel}
	c.conn = h
	c.state = Connecting
	glog.V(2).Infof("channel: connecting")
	c.emitLocked(Connecting, nil)

	go c.run(ctx, h, url)
}

func (c *Channel) run(ctx context.Context, h *conn, url string) {
	stream, err := c.transport.Dial(ctx, url)
	if err != nil {
		c.fail(h, err)
		return
	}

	c.mu.Lock()
	if c.conn != h {
		c.mu.Unlock()
		_ = stream.Close()
		return
	}
	h.stream = stream
	c.state = Open
	glog.V(2).Infof("channel: open")
	c.emitLocked(Open, nil)

	for {
		frame, err := stream.Next()
		if err != nil {
			c.fail(h, err)
			return
		}
		c.dispatch(h, frame)
	}
}

// fail moves a live connection to Erroring and schedules one reconnect.
// Failures of a handle that was closed or replaced are ignored.
func (c *Channel) fail(h *conn, err error) {
	c.mu.Lock()
	if c.conn != h {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	h.cancel()
	stream := h.stream
	c.state = Erroring
	if c.cfg.AutoReconnect {
		c.stopTimerLocked()
		epoch := c.epoch
		c.timer = time.AfterFunc(c.cfg.ReconnectDelay, func() { c.reconnect(epoch) })
	}
	glog.V(2).Infof("channel: transport error: %v", err)
	c.emitLocked(Erroring, err)

	if stream != nil {
		_ = stream.Close()
	}
}

func (c *Channel) reconnect(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	token := c.tokens.Token()
	url, err := c.cfg.urlWithToken(token)
	if token == "" || err != nil {
		c.state = Disconnected
		glog.V(2).Infof("channel: no token for reconnect")
		c.emitLocked(Disconnected, nil)
		return
	}
	c.startLocked(url)
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// emitLocked must be called with mu held; it releases mu and then runs the
// observers for the transition to s.
func (c *Channel) emitLocked(s State, err error) {
	stateFns := orderedFns(c.stateFn)
	var errorFns []func(error)
	if err != nil {
		errorFns = orderedFns(c.errorFn)
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	if err != nil {
		for _, fn := range errorFns {
			safeCall("error observer", func() { fn(err) })
		}
	}
	for _, fn := range stateFns {
		safeCall("state observer", func() { fn(s) })
	}
}

func (c *Channel) dispatch(h *conn, f Frame) {
	if !json.Valid(f.Data) {
		glog.Warningf("channel: dropping malformed frame (event=%q, %d bytes)", f.Event, len(f.Data))
		return
	}
	raw := json.RawMessage(f.Data)

	c.mu.Lock()
	if c.conn != h {
		c.mu.Unlock()
		return
	}
	if f.Event == "" {
		general := c.general
		c.mu.Unlock()
		if general != nil {
			safeCall("message handler", func() { general(raw) })
		}
		return
	}
	hs := append([]handler(nil), c.subs[f.Event]...)
	c.mu.Unlock()

	for _, sub := range hs {
		var herr error
		safeCall("handler for "+f.Event, func() { herr = sub.fn(raw) })
		if herr != nil {
			glog.Warningf("channel: %s payload rejected by handler: %v", f.Event, herr)
		}
	}
}

func safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("channel: recovered panic in %s: %v", what, r)
		}
	}()
	fn()
}

func orderedFns[F any](m map[uint64]F) []F {
	if len(m) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]F, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
