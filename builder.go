package goLMS

import (
	"net/http"

	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/request"
	"github.com/MrEthical07/goLMS/session"
)

// Builder assembles a Client. A Builder is single-use.
//
// Builder instances are intended to be configured during initialization and then treated as immutable.
type Builder struct {
	config Config

	tokenStore   session.TokenStore
	httpClient   *http.Client
	transport    channel.Transport
	notifySink   notify.Sink
	policy       *permission.Policy
	interceptors []request.Interceptor

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithOrigin sets API.Origin, e.g. https://lms.example.edu.
func (b *Builder) WithOrigin(origin string) *Builder {
	b.config.API.Origin = origin
	return b
}

// WithTokenStore sets where the access token is persisted. The default keeps
// it in memory only.
func (b *Builder) WithTokenStore(store session.TokenStore) *Builder {
	b.tokenStore = store
	return b
}

// WithHTTPClient sets the client used for API calls and the SSE transport.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithTransport overrides the push transport selected by Push.Transport.
func (b *Builder) WithTransport(t channel.Transport) *Builder {
	b.transport = t
	return b
}

// WithNotifySink adds a sink that receives every notice in addition to the
// client's notice board.
func (b *Builder) WithNotifySink(sink notify.Sink) *Builder {
	b.notifySink = sink
	return b
}

// WithPolicy replaces DefaultPolicy.
func (b *Builder) WithPolicy(p permission.Policy) *Builder {
	b.policy = &p
	return b
}

// WithInterceptor appends request interceptors that run after the built-in ones.
func (b *Builder) WithInterceptor(ics ...request.Interceptor) *Builder {
	b.interceptors = append(b.interceptors, ics...)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. It fails with
// ErrBuilderUsed on a second call.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if cfg.Push.Transport == "" {
		cfg.Push.Transport = TransportSSE
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy := DefaultPolicy()
	if b.policy != nil {
		policy = *b.policy
	}
	gate, err := permission.NewGate(policy)
	if err != nil {
		return nil, err
	}

	c, err := newClient(cfg, clientDeps{
		store:        b.tokenStore,
		httpClient:   b.httpClient,
		transport:    b.transport,
		sink:         b.notifySink,
		gate:         gate,
		interceptors: append([]request.Interceptor(nil), b.interceptors...),
	})
	if err != nil {
		return nil, err
	}

	b.built = true
	return c, nil
}
