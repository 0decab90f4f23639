package permkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind discriminates the closed set of error categories the client can
// surface. Every failure returned from a call is an *Error carrying exactly
// one of these kinds; no raw transport errors escape to callers.
type Kind int

const (
	// KindConfiguration indicates invalid client configuration detected at
	// construction time.
	KindConfiguration Kind = iota

	// KindAuthentication indicates the API key was rejected (HTTP 401).
	KindAuthentication

	// KindValidation indicates the request was rejected as invalid, either
	// client-side before any network call or by the service (HTTP 400).
	KindValidation

	// KindResourceNotFound indicates a missing subject, scope, permission or
	// limit (HTTP 404).
	KindResourceNotFound

	// KindConflict indicates the operation conflicts with existing state
	// (HTTP 409), e.g. setting a limit with a different active window type.
	KindConflict

	// KindRateLimit indicates the service throttled the caller (HTTP 429).
	KindRateLimit

	// KindServer covers 5xx responses, exhausted retries, and any status the
	// mapping does not otherwise claim.
	KindServer

	// KindNetwork covers connect, DNS and TLS failures on the final attempt.
	KindNetwork

	// KindTimeout indicates the configured request timeout elapsed on the
	// final attempt.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is the one error type returned by the client. Which fields are
// populated depends on Kind.
type Error struct {
	Kind    Kind
	Message string

	// Status is the HTTP status code for errors produced from a response.
	Status int

	// Field names the request field that failed validation, when the service
	// reported one.
	Field string

	// ResourceType and ResourceID describe what a 404 referred to, when the
	// service reported them.
	ResourceType string
	ResourceID   string

	// RetryAfter is the parsed Retry-After header on a 429, in seconds.
	// Zero means the header was absent.
	RetryAfter int

	// Timeout is the configured per-attempt timeout that elapsed, for
	// KindTimeout errors.
	Timeout time.Duration

	// ResponseBody is the raw body of a conflict response, when present.
	ResponseBody []byte

	// Err is the underlying cause for network and timeout errors.
	Err error
}

// Kind sentinels for use with errors.Is.
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrResourceNotFound = &Error{Kind: KindResourceNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrRateLimit        = &Error{Kind: KindRateLimit}
	ErrServer           = &Error{Kind: KindServer}
	ErrNetwork          = &Error{Kind: KindNetwork}
	ErrTimeout          = &Error{Kind: KindTimeout}
)

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Is reports kind equality, so errors.Is(err, ErrRateLimit) works regardless
// of the other structured fields.
func (e *Error) Is(target error) bool {
	t := AsApiError(target)
	return t != nil && t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsApiError returns the *Error in err's chain, or nil if there is none.
func AsApiError(in error) *Error {
	var apiErr *Error
	if !errors.As(in, &apiErr) {
		return nil
	}
	return apiErr
}

// errorBody is the structured error shape the service returns alongside
// non-2xx statuses.
type errorBody struct {
	Detail    string `json:"detail"`
	ErrorType string `json:"error_type"`
	Field     string `json:"field"`
}

// apiErrorFromResponse maps a non-2xx response to an *Error. The mapping is
// total: any status not otherwise claimed lands in KindServer.
func apiErrorFromResponse(status int, header http.Header, body []byte) *Error {
	var eb errorBody
	message := ""
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		message = eb.Detail
	} else if len(body) > 0 {
		message = string(body)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}

	switch status {
	case http.StatusUnauthorized:
		return &Error{
			Kind:    KindAuthentication,
			Message: message,
			Status:  status,
		}
	case http.StatusBadRequest:
		return &Error{
			Kind:    KindValidation,
			Message: message,
			Status:  status,
			Field:   eb.Field,
		}
	case http.StatusNotFound:
		return &Error{
			Kind:         KindResourceNotFound,
			Message:      message,
			Status:       status,
			ResourceType: eb.ErrorType,
		}
	case http.StatusConflict:
		return &Error{
			Kind:         KindConflict,
			Message:      message,
			Status:       status,
			ResponseBody: body,
		}
	case http.StatusTooManyRequests:
		var retryAfter int
		if v := header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = secs
			}
		}
		return &Error{
			Kind:       KindRateLimit,
			Message:    message,
			Status:     status,
			RetryAfter: retryAfter,
		}
	default:
		return &Error{
			Kind:    KindServer,
			Message: message,
			Status:  status,
		}
	}
}
