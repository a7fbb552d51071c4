package mailgate

import (
	"context"
	"net/http"
)

// Preview validates a message without staging it. Validation problems are
// reported in the result, not as an error.
func (c *Client) Preview(ctx context.Context, msg Message) (*Preview, error) {
	return doRequest[Preview](ctx, c, http.MethodPost, "/tools/preview_email", msg, http.StatusOK)
}

// Prepare validates and stages a draft. Nothing is sent. A blocking
// validation issue is returned as an *APIError carrying the Issue.
func (c *Client) Prepare(ctx context.Context, msg Message) (*Prepared, error) {
	return doRequest[Prepared](ctx, c, http.MethodPost, "/tools/prepare_email", msg, http.StatusCreated)
}

// Confirm transmits a staged draft. Every pipeline result, including a
// provider failure, comes back as an Outcome; check Outcome.Sent.
func (c *Client) Confirm(ctx context.Context, draftID string) (*Outcome, error) {
	return doOutcome(ctx, c, "/tools/confirm_send", draftID)
}

// Cancel discards a staged draft. Cancelling an unknown id succeeds; a draft
// whose send is in flight is reported with Status StatusInFlight.
func (c *Client) Cancel(ctx context.Context, draftID string) (*Outcome, error) {
	return doOutcome(ctx, c, "/tools/cancel_draft", draftID)
}

// AuthStatus reports whether the server holds a usable mail credential.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	return doRequest[AuthStatus](ctx, c, http.MethodGet, "/tools/check_auth_status", nil, http.StatusOK)
}
