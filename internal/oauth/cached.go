package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// CachedProvider is a TokenProvider backed by a FileCache. Expired access
// tokens are refreshed with the cached refresh token and written back.
type CachedProvider struct {
	config *oauth2.Config
	cache  *FileCache
	mu     sync.Mutex
}

// NewCachedProvider creates a provider for cfg using cache.
func NewCachedProvider(cfg MicrosoftConfig, cache *FileCache) *CachedProvider {
	return &CachedProvider{config: cfg.OAuth2(), cache: cache}
}

func (p *CachedProvider) CurrentToken(ctx context.Context) (*Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, err := p.cache.Load()
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNoCredential, err)
	}

	if cred.Token.Valid() {
		return toToken(cred), nil
	}
	if cred.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: access token expired and no refresh token cached", ErrNoCredential)
	}

	fresh, err := p.config.TokenSource(ctx, cred.Token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh: %v", ErrNoCredential, err)
	}
	cred = merge(cred, fresh)
	if err := p.cache.Save(cred); err != nil {
		return nil, err
	}
	return toToken(cred), nil
}

// Login runs the device authorization grant. show is called once with the
// verification URI and user code; Login then polls until the user completes
// sign-in, ctx is cancelled, or the code expires.
func (p *CachedProvider) Login(ctx context.Context, show func(*oauth2.DeviceAuthResponse)) (*Token, error) {
	da, err := p.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device flow: %w", err)
	}
	show(da)

	tok, err := p.config.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("device flow: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cred := merge(&Credential{}, tok)
	if err := p.cache.Save(cred); err != nil {
		return nil, err
	}
	return toToken(cred), nil
}

// merge copies tok into cred, keeping the previous id_token and scope when the
// token endpoint omits them on refresh.
func merge(cred *Credential, tok *oauth2.Token) *Credential {
	out := &Credential{Token: tok, IDToken: cred.IDToken, Scope: cred.Scope}
	if v, ok := tok.Extra("id_token").(string); ok && v != "" {
		out.IDToken = v
	}
	if v, ok := tok.Extra("scope").(string); ok && v != "" {
		out.Scope = v
	}
	if out.Token.RefreshToken == "" && cred.Token != nil {
		out.Token.RefreshToken = cred.Token.RefreshToken
	}
	return out
}

func toToken(cred *Credential) *Token {
	// Identity claims are informational; a malformed id_token does not make
	// the access token unusable.
	claims, _ := ParseIDToken(cred.IDToken)
	return &Token{
		AccessToken: cred.Token.AccessToken,
		Expiry:      cred.Token.Expiry,
		Scopes:      strings.Fields(cred.Scope),
		Claims:      claims,
	}
}
