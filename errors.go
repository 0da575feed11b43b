package goLMS

import (
	"errors"

	"github.com/MrEthical07/goLMS/request"
)

var (
	// ErrUnauthorized matches request failures with HTTP 401.
	ErrUnauthorized = request.ErrUnauthorized
	// ErrForbidden matches request failures with HTTP 403.
	ErrForbidden = request.ErrForbidden
	// ErrNotFound matches request failures with HTTP 404.
	ErrNotFound = request.ErrNotFound
	// ErrValidation matches local and server-side field validation failures.
	ErrValidation = request.ErrValidation
	// ErrTransient matches 5xx, timeout and network failures.
	ErrTransient = request.ErrTransient
	// ErrMalformedResponse matches success responses that failed to decode.
	ErrMalformedResponse = request.ErrMalformedResponse
	// ErrCanceled matches requests abandoned through their context.
	ErrCanceled = request.ErrCanceled

	// ErrClientNotReady is returned by operations on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid goLMS config")
	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnknownTransport is returned for an unsupported Push.Transport value.
	ErrUnknownTransport = errors.New("unknown push transport")
)
