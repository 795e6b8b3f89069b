package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind is the closed set of classified client-side error kinds.
type Kind string

const (
	KindNetworkUnreachable  Kind = "NETWORK_UNREACHABLE"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindPairingCodeInvalid  Kind = "PAIRING_CODE_INVALID"
	KindPairingCodeExpired  Kind = "PAIRING_CODE_EXPIRED"
	KindPairingRateLimited  Kind = "PAIRING_RATE_LIMITED"
	KindSessionInvalid      Kind = "SESSION_INVALID"
	KindSessionExpired      Kind = "SESSION_EXPIRED"
	KindSessionLimitReached Kind = "SESSION_LIMIT_REACHED"
	KindGeneric             Kind = "API_ERROR"
)

// DefaultRetryAfter applies when a 429 response carries no Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// Error is a classified API error. Message carries the server-supplied
// text when one was present.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	RetryAfter time.Duration // set only for KindRateLimited / KindPairingRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error carrying an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// As converts err to *Error when possible.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the classified kind, or KindGeneric for foreign errors.
func KindOf(err error) Kind {
	if apiErr, ok := As(err); ok {
		return apiErr.Kind
	}
	return KindGeneric
}

// IsAuthFailure reports whether the kind must deauthenticate the client.
func IsAuthFailure(kind Kind) bool {
	switch kind {
	case KindUnauthorized, KindSessionInvalid, KindSessionExpired:
		return true
	}
	return false
}

// IsPairingFailure reports whether the kind belongs to the pairing handshake.
func IsPairingFailure(kind Kind) bool {
	switch kind {
	case KindPairingCodeInvalid, KindPairingCodeExpired, KindPairingRateLimited, KindSessionLimitReached:
		return true
	}
	return false
}

// Envelope is the success/error wrapper every endpoint except /health uses.
type Envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Classify maps a raw HTTP outcome to exactly one error kind, or nil for a
// successful outcome. transportErr is a connection-level failure (DNS,
// refused connection, timeout); when set it wins over everything else.
func Classify(status int, header http.Header, env *Envelope, transportErr error) *Error {
	if transportErr != nil {
		return Wrap(KindNetworkUnreachable, "server unreachable", transportErr)
	}

	if status == http.StatusTooManyRequests {
		return &Error{
			Kind:       KindRateLimited,
			Message:    "rate limited",
			StatusCode: status,
			RetryAfter: retryAfterFrom(header),
		}
	}

	if env != nil && env.Success {
		return nil
	}

	message := "request failed"
	code := ""
	if env != nil {
		if env.Error != "" {
			message = env.Error
		}
		code = env.Code
	}

	switch code {
	case "UNAUTHORIZED":
		return &Error{Kind: KindUnauthorized, Message: message, StatusCode: status}
	case "SESSION_INVALID":
		return &Error{Kind: KindSessionInvalid, Message: message, StatusCode: status}
	case "SESSION_EXPIRED":
		return &Error{Kind: KindSessionExpired, Message: message, StatusCode: status}
	case "PAIRING_CODE_INVALID":
		return &Error{Kind: KindPairingCodeInvalid, Message: message, StatusCode: status}
	case "PAIRING_CODE_EXPIRED":
		return &Error{Kind: KindPairingCodeExpired, Message: message, StatusCode: status}
	case "PAIRING_RATE_LIMITED":
		return &Error{
			Kind:       KindPairingRateLimited,
			Message:    message,
			StatusCode: status,
			RetryAfter: retryAfterFrom(header),
		}
	case "SESSION_LIMIT_REACHED":
		return &Error{Kind: KindSessionLimitReached, Message: message, StatusCode: status}
	}

	if status == http.StatusUnauthorized {
		return &Error{Kind: KindUnauthorized, Message: message, StatusCode: status}
	}

	return &Error{Kind: KindGeneric, Message: message, StatusCode: status}
}

// ClassifyStatus judges an outcome by HTTP status alone. The health endpoint
// carries no success envelope.
func ClassifyStatus(status int, transportErr error) *Error {
	if transportErr != nil {
		return Wrap(KindNetworkUnreachable, "server unreachable", transportErr)
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return &Error{Kind: KindGeneric, Message: fmt.Sprintf("health check failed with status %d", status), StatusCode: status}
}

func retryAfterFrom(header http.Header) time.Duration {
	if header == nil {
		return DefaultRetryAfter
	}
	raw := header.Get("Retry-After")
	if raw == "" {
		return DefaultRetryAfter
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
