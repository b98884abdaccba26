package spamwatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors, one per failure class. Every typed error below matches
// exactly one of them with errors.Is.
var (
	ErrBadRequest      = errors.New("spamwatch: bad request")
	ErrUnauthorized    = errors.New("spamwatch: unauthorized")
	ErrForbidden       = errors.New("spamwatch: forbidden")
	ErrNotFound        = errors.New("spamwatch: not found")
	ErrTooManyRequests = errors.New("spamwatch: too many requests")
	ErrDecode          = errors.New("spamwatch: decode failure")
	ErrTransport       = errors.New("spamwatch: transport failure")
	// ErrAPI covers status codes outside the documented vocabulary
	ErrAPI = errors.New("spamwatch: unexpected API response")
)

// BadRequestError is returned for status 400
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	if e.Reason == "" {
		return ErrBadRequest.Error()
	}
	return fmt.Sprintf("spamwatch: bad request: %s", e.Reason)
}

func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// UnauthorizedError is returned for status 401
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "spamwatch: unauthorized: make sure your token is correct"
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// ForbiddenError is returned for status 403. Permission is only meaningful
// when Known is set; LookupErr holds the failure of the self lookup otherwise.
type ForbiddenError struct {
	Path       string
	Permission Permission
	Known      bool
	LookupErr  error
}

func (e *ForbiddenError) Error() string {
	if !e.Known {
		return fmt.Sprintf("spamwatch: forbidden: your token's permission is not high enough for %s", e.Path)
	}
	return fmt.Sprintf("spamwatch: forbidden: your token's permission '%s' is not high enough for %s", e.Permission, e.Path)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// NotFoundError is returned for status 404
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("spamwatch: not found: %s does not exist", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TooManyRequestsError is returned for status 429. RetryAfter is the absolute
// local time after which the server accepts requests again.
type TooManyRequestsError struct {
	Path       string
	RetryAfter time.Time
}

func (e *TooManyRequestsError) Error() string {
	if e.RetryAfter.IsZero() {
		return fmt.Sprintf("spamwatch: too many requests for %s", e.Path)
	}
	return fmt.Sprintf("spamwatch: too many requests for %s, retry after %s",
		e.Path, e.RetryAfter.Format(time.RFC3339))
}

func (e *TooManyRequestsError) Is(target error) bool { return target == ErrTooManyRequests }

// RetryIn returns how long to wait from now, never negative
func (e *TooManyRequestsError) RetryIn(now time.Time) time.Duration {
	if d := e.RetryAfter.Sub(now); d > 0 {
		return d
	}
	return 0
}

// DecodeError means the response body did not match the expected shape
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("spamwatch: failed to decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError means the exchange itself failed, including cancellation
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spamwatch: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is returned for status codes with no dedicated class
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("spamwatch: %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("spamwatch: %s returned status %d: %s", e.Path, e.StatusCode, body)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// errorBody is the JSON error payload of the API
type errorBody struct {
	Code   int    `json:"code"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Until  int64  `json:"until"`
}

// classify maps a status code and body to nil (success) or a classified
// error. It performs no I/O; ForbiddenError comes back without a permission.
func classify(path string, status int, body []byte) error {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		var payload errorBody
		if err := json.Unmarshal(body, &payload); err == nil && payload.Reason != "" {
			return &BadRequestError{Reason: payload.Reason}
		}
		return &BadRequestError{Reason: strings.TrimSpace(string(body))}
	case http.StatusUnauthorized:
		return &UnauthorizedError{}
	case http.StatusForbidden:
		return &ForbiddenError{Path: path}
	case http.StatusNotFound:
		return &NotFoundError{Path: path}
	case http.StatusTooManyRequests:
		e := &TooManyRequestsError{Path: path}
		var payload errorBody
		if err := json.Unmarshal(body, &payload); err == nil && payload.Until > 0 {
			e.RetryAfter = time.Unix(payload.Until, 0)
		}
		return e
	default:
		return &APIError{Path: path, StatusCode: status, Body: string(body)}
	}
}
