package email

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed transmission attempt.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindThrottling ErrorKind = "throttling"
	KindClient     ErrorKind = "client"
	KindServer     ErrorKind = "server"
	KindNetwork    ErrorKind = "network"
)

// ProviderError is returned by Provider.Send for every failure. StatusCode is
// zero for network failures, where no response was obtained.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("graph network error: %s", e.Detail)
	}
	return fmt.Sprintf("graph api error (%d): %s", e.StatusCode, e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later without a fix
// on the caller's side.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindThrottling, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// Classify maps a non-2xx status onto a ProviderError.
// Statuses outside 4xx/5xx are unexpected from the provider and count as
// server errors.
func Classify(status int, detail string) *ProviderError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	e := &ProviderError{StatusCode: status, Detail: detail}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
	case status == http.StatusTooManyRequests:
		e.Kind = KindThrottling
	case status >= 400 && status < 500:
		e.Kind = KindClient
	default:
		e.Kind = KindServer
	}
	return e
}

// AsProviderError unwraps err into a *ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
