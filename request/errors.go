package request

import (
	"errors"
	"fmt"
)

// GenericMessage is shown when no more specific text is available.
const GenericMessage = "Something went wrong. Please try again."

var (
	ErrInvalidConfig     = errors.New("invalid request client configuration")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRejected          = errors.New("request rejected")
	ErrTransient         = errors.New("transient failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCanceled          = errors.New("request canceled")
)

// Kind classifies a normalized failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindClient
	KindTransient
	KindMalformed
	KindCanceled
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindValidation:     "validation",
	KindAuthentication: "authentication",
	KindAuthorization:  "authorization",
	KindNotFound:       "not_found",
	KindConflict:       "conflict",
	KindClient:         "client",
	KindTransient:      "transient",
	KindMalformed:      "malformed",
	KindCanceled:       "canceled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrUnauthorized
	case KindAuthorization:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindClient:
		return ErrRejected
	case KindTransient:
		return ErrTransient
	case KindMalformed:
		return ErrMalformedResponse
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// FieldError is a validation message scoped to one input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the uniform failure record. It matches the package sentinel for
// its Kind under errors.Is.
type Error struct {
	Message     string
	Code        string
	HTTPStatus  int
	FieldErrors []FieldError
	Kind        Kind
	Err         error

	// structured is set when Message came from a server error body.
	structured bool
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.HTTPStatus)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Field returns the message for field, or "".
func (e *Error) Field(name string) string {
	for _, fe := range e.FieldErrors {
		if fe.Field == name {
			return fe.Message
		}
	}
	return ""
}

// UserMessage is the text suitable for a global notice.
func (e *Error) UserMessage() string {
	if e.structured && e.Message != "" {
		return e.Message
	}
	return GenericMessage
}

// AsError extracts the normalized record from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NewValidationError builds a local, field-scoped failure. It never reaches
// the notifier.
func NewValidationError(message string, fields []FieldError) *Error {
	if message == "" {
		message = "Please correct the highlighted fields."
	}
	return &Error{
		Message:     message,
		Kind:        KindValidation,
		FieldErrors: fields,
		structured:  true,
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == 400 || status == 422:
		return KindValidation
	case status == 401:
		return KindAuthentication
	case status == 403:
		return KindAuthorization
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindConflict
	case status >= 500:
		return KindTransient
	default:
		return KindClient
	}
}
