package api

import (
	"context"

	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/oauth"
)

type providerFunc func(ctx context.Context, token string, msg email.Message) error

func (f providerFunc) Send(ctx context.Context, token string, msg email.Message) error {
	return f(ctx, token, msg)
}

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) CurrentToken(ctx context.Context) (*oauth.Token, error) {
	at, err := f(ctx)
	if err != nil {
		return nil, err
	}
	return &oauth.Token{AccessToken: at}, nil
}
