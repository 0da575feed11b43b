package request

import (
	"net/http"

	"github.com/google/uuid"
)

// Interceptor adjusts an outbound request. A returned error aborts the call.
type Interceptor func(req *http.Request) error

// TokenSource reports the current access token, or "" when absent.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

func JSONHeaders() Interceptor {
	return func(req *http.Request) error {
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		return nil
	}
}

func RequestID() Interceptor {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.NewString())
		}
		return nil
	}
}

func TenantHeader() Interceptor {
	return func(req *http.Request) error {
		if tenantID, ok := TenantIDFromContext(req.Context()); ok {
			req.Header.Set("X-Tenant-ID", tenantID)
		}
		return nil
	}
}

// Bearer sets Authorization when tokens reports a token and leaves the
// request unauthenticated otherwise.
func Bearer(tokens TokenSource) Interceptor {
	return func(req *http.Request) error {
		if tokens == nil {
			return nil
		}
		if token := tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

func UserAgent(ua string) Interceptor {
	return func(req *http.Request) error {
		if ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		return nil
	}
}
