// Package oauth obtains the delegated Microsoft Graph credential used to send
// mail: a device-code login populates a local token cache, and later calls
// refresh it silently.
package oauth

import (
	"context"
	"errors"
	"time"
)

// ErrNoCredential means no usable access token can be produced without an
// interactive login.
var ErrNoCredential = errors.New("oauth: no usable credential")

// Token is a usable access token plus what is known about its owner.
type Token struct {
	AccessToken string
	Expiry      time.Time
	Scopes      []string
	Claims      Claims
}

// TokenProvider yields the current credential, refreshing it if needed.
// It never prompts; when nothing usable exists it returns ErrNoCredential.
type TokenProvider interface {
	CurrentToken(ctx context.Context) (*Token, error)
}
