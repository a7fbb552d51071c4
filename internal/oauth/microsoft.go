package oauth

import (
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"User.Read", "Mail.Send", "Mail.ReadWrite", "offline_access", "openid", "profile"}

// MicrosoftConfig describes the public client registered in Entra ID.
type MicrosoftConfig struct {
	ClientID string
	TenantID string
	Scopes   []string
	// Endpoint overrides the identity platform endpoints derived from TenantID.
	Endpoint oauth2.Endpoint
}

// OAuth2 returns the oauth2 configuration for the public client.
func (c MicrosoftConfig) OAuth2() *oauth2.Config {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		tenant := c.TenantID
		if tenant == "" {
			tenant = "common"
		}
		ep = microsoft.AzureADEndpoint(tenant)
		if ep.DeviceAuthURL == "" {
			ep.DeviceAuthURL = strings.Replace(ep.TokenURL, "/token", "/devicecode", 1)
		}
	}
	// Public clients have no secret; send client_id in the form body.
	ep.AuthStyle = oauth2.AuthStyleInParams

	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &oauth2.Config{
		ClientID: c.ClientID,
		Scopes:   scopes,
		Endpoint: ep,
	}
}
