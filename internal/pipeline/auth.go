package pipeline

import (
	"context"
)

// AuthStatus reports whether a usable mail credential is cached.
type AuthStatus struct {
	Status  string   `json:"status"`
	Valid   bool     `json:"valid"`
	User    string   `json:"user,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`
	Message string   `json:"message"`
}

// AuthStatus asks the credential provider for the current token. It may
// refresh the cached token but never prompts.
func (s *Service) AuthStatus(ctx context.Context) AuthStatus {
	if s.tokens == nil {
		return notAuthenticated()
	}
	tok, err := s.tokens.CurrentToken(ctx)
	if err != nil || tok == nil {
		return notAuthenticated()
	}
	return AuthStatus{
		Status:  "Authenticated",
		Valid:   true,
		User:    tok.Claims.DisplayName(),
		Scopes:  tok.Scopes,
		Message: "Ready to send emails.",
	}
}

func notAuthenticated() AuthStatus {
	return AuthStatus{
		Status:  "Not Authenticated",
		Valid:   false,
		Message: "Server needs authentication. Operator must run auth-bootstrap.",
	}
}
