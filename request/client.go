package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/goLMS/notify"
	"github.com/golang/glog"
)

// Completion describes one finished call, including retries.
type Completion struct {
	Method   string
	Path     string
	Status   int
	Kind     Kind
	Attempts int
	Latency  time.Duration
}

// Client sends JSON requests to the LMS API.
type Client struct {
	cfg            Config
	http           *http.Client
	interceptors   []Interceptor
	notifier       notify.Notifier
	onUnauthorized func()
	onComplete     func(Completion)
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithInterceptor appends interceptors after the built-in ones.
func WithInterceptor(ics ...Interceptor) Option {
	return func(c *Client) {
		for _, ic := range ics {
			if ic != nil {
				c.interceptors = append(c.interceptors, ic)
			}
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithUnauthorizedHandler sets the function called once for each call that
// ends in 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithCompletionHook(fn func(Completion)) Option {
	return func(c *Client) { c.onComplete = fn }
}

// New validates cfg and builds a Client. tokens may be nil for a client that
// never authenticates.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		interceptors: []Interceptor{
			JSONHeaders(),
			RequestID(),
			TenantHeader(),
			Bearer(tokens),
			UserAgent(cfg.UserAgent),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends body as JSON and decodes a 2xx response into out. out may be nil.
// Any failure is returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Message: GenericMessage, Kind: KindClient, Err: err}
		}
	}

	maxAttempts := 1
	if method == http.MethodGet || method == http.MethodHead {
		maxAttempts += c.cfg.MaxRetries
	}

	var (
		status   int
		rerr     *Error
		attempts int
	)
	for attempts = 1; ; attempts++ {
		status, rerr = c.send(ctx, method, path, payload, out)
		if rerr == nil || rerr.Kind != KindTransient || attempts >= maxAttempts {
			break
		}
		glog.V(2).Infof("request: retrying %s %s after attempt %d: %v", method, path, attempts, rerr)
		if err := sleepContext(ctx, c.cfg.RetryBackoff); err != nil {
			rerr = canceled(err)
			break
		}
	}

	if c.onComplete != nil {
		done := Completion{Method: method, Path: path, Status: status, Attempts: attempts, Latency: time.Since(start)}
		if rerr != nil {
			done.Kind = rerr.Kind
		}
		c.onComplete(done)
	}

	if rerr == nil {
		return nil
	}
	c.settleError(ctx, rerr)
	return rerr
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) (int, *Error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.endpoint(path), reader)
	if err != nil {
		return 0, &Error{Message: err.Error(), Kind: KindClient, Err: err}
	}
	for _, ic := range c.interceptors {
		if err := ic(req); err != nil {
			return 0, &Error{Message: err.Error(), Kind: KindClient, Err: err}
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, canceled(ctxErr)
		}
		return 0, &Error{Message: err.Error(), Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp.StatusCode, canceled(ctxErr)
		}
		return resp.StatusCode, &Error{Message: err.Error(), Kind: KindTransient, HTTPStatus: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, normalizeStatus(resp, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		glog.Warningf("request: malformed response body for %s %s: %v", method, path, err)
		return resp.StatusCode, &Error{
			Message:    GenericMessage,
			Kind:       KindMalformed,
			HTTPStatus: resp.StatusCode,
			Err:        err,
		}
	}
	return resp.StatusCode, nil
}

type errorBody struct {
	Message     string       `json:"message"`
	Code        string       `json:"code"`
	FieldErrors []FieldError `json:"fieldErrors"`
}

func normalizeStatus(resp *http.Response, data []byte) *Error {
	e := &Error{
		HTTPStatus: resp.StatusCode,
		Kind:       kindForStatus(resp.StatusCode),
	}

	var body errorBody
	if len(data) > 0 && json.Unmarshal(data, &body) == nil && (body.Message != "" || body.Code != "" || len(body.FieldErrors) > 0) {
		e.Message = body.Message
		e.Code = body.Code
		e.FieldErrors = body.FieldErrors
		e.structured = body.Message != ""
	}
	if e.Message == "" {
		e.Message = resp.Status
		if e.Message == "" {
			e.Message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
	}
	return e
}

// settleError runs the per-call side effects of a final failure.
func (c *Client) settleError(ctx context.Context, e *Error) {
	switch e.Kind {
	case KindAuthentication:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case KindTransient:
		if c.notifier != nil && !isQuiet(ctx) {
			c.notifier.Notify(context.WithoutCancel(ctx), notify.Error("request", e.UserMessage()))
		}
	}
}

func canceled(err error) *Error {
	return &Error{Message: "request canceled", Kind: KindCanceled, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
