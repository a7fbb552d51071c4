// auth-bootstrap signs the operator in with the device code flow and writes
// the token cache the server reads. Run it once before starting the server,
// and again whenever check_auth_status reports "Not Authenticated".
//
// Usage:
//
//	go run ./cmd/auth-bootstrap
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/oauth2"

	"github.com/gsarma/mailgate/internal/config"
	"github.com/gsarma/mailgate/internal/crypto"
	"github.com/gsarma/mailgate/internal/oauth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Auth.ClientID == "" {
		log.Fatal("GRAPH_CLIENT_ID is required")
	}

	var sealer *crypto.Sealer
	if cfg.Auth.TokenCacheKey != "" {
		if sealer, err = crypto.NewSealer(cfg.Auth.TokenCacheKey); err != nil {
			log.Fatalf("token cache key: %v", err)
		}
	}
	cache := oauth.NewFileCache(cfg.Auth.TokenCacheFile, sealer)
	provider := oauth.NewCachedProvider(oauth.MicrosoftConfig{
		ClientID: cfg.Auth.ClientID,
		TenantID: cfg.Auth.TenantID,
		Scopes:   cfg.Auth.Scopes,
	}, cache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tok, err := provider.CurrentToken(ctx)
	switch {
	case err == nil:
		fmt.Printf("Already signed in as %s (%s).\n", tok.Claims.DisplayName(), cache.Path())
		return
	case !errors.Is(err, oauth.ErrNoCredential):
		log.Fatal(err)
	}

	tok, err = provider.Login(ctx, func(da *oauth2.DeviceAuthResponse) {
		fmt.Printf("To sign in, open %s and enter the code %s\n", da.VerificationURI, da.UserCode)
	})
	if err != nil {
		log.Fatalf("sign-in failed: %v", err)
	}

	fmt.Printf("Signed in as %s.\n", tok.Claims.DisplayName())
	fmt.Printf("Granted scopes: %s\n", strings.Join(tok.Scopes, " "))
	fmt.Printf("Token cache written to %s\n", cache.Path())
}
