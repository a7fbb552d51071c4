package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gsarma/mailgate/internal/draft"
	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/journal"
)

// Status is the result category of Confirm or Cancel.
type Status string

const (
	StatusSent         Status = "sent"
	StatusNotFound     Status = "not_found"
	StatusInFlight     Status = "in_flight"
	StatusAuthRequired Status = "auth_required"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
	StatusError        Status = "error"
)

// Outcome reports what Confirm or Cancel did. ErrorKind, StatusCode and
// Retryable are set for provider failures only.
type Outcome struct {
	Status     Status          `json:"status"`
	DraftID    string          `json:"draft_id"`
	Message    string          `json:"message"`
	Recipients []string        `json:"recipients,omitempty"`
	ErrorKind  email.ErrorKind `json:"error_kind,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable,omitempty"`
}

const msgAuthRequired = "Error: Authentication required. Run auth-bootstrap or check auth status."

// Confirm transmits a staged draft. The draft is deleted only when the
// provider acknowledges it; every other outcome leaves it staged. Confirm
// never returns an error: failures are reported in the Outcome.
func (s *Service) Confirm(ctx context.Context, id string) Outcome {
	// Cleanup must run even when the caller hangs up mid-send.
	bg := context.WithoutCancel(ctx)

	d, err := s.store.Claim(ctx, id)
	switch {
	case errors.Is(err, draft.ErrNotFound):
		return s.finish(bg, Outcome{
			Status:  StatusNotFound,
			DraftID: id,
			Message: fmt.Sprintf("Error: Draft '%s' not found or expired.", id),
		}, 0)
	case errors.Is(err, draft.ErrClaimed):
		return s.finish(bg, Outcome{
			Status:  StatusInFlight,
			DraftID: id,
			Message: fmt.Sprintf("Error: Draft '%s' is already being sent. Retry after the current attempt finishes.", id),
		}, 0)
	case err != nil:
		s.logger.ErrorContext(ctx, "draft lookup failed", slog.String("draft_id", id), slog.String("error", err.Error()))
		return s.finish(bg, Outcome{
			Status:  StatusError,
			DraftID: id,
			Message: fmt.Sprintf("Error: could not load draft '%s': %v", id, err),
		}, 0)
	}
	n := d.Message.RecipientCount()

	var token string
	if s.tokens != nil {
		if tok, err := s.tokens.CurrentToken(ctx); err == nil && tok != nil {
			token = tok.AccessToken
		} else if err != nil {
			s.logger.WarnContext(ctx, "auth required", slog.String("draft_id", id), slog.String("error", err.Error()))
		}
	}
	if token == "" {
		s.release(bg, id)
		return s.finish(bg, Outcome{Status: StatusAuthRequired, DraftID: id, Message: msgAuthRequired}, n)
	}

	if err := s.provider.Send(ctx, token, d.Message); err != nil {
		s.release(bg, id)
		out := failure(id, err)
		s.logger.WarnContext(ctx, "draft send failed",
			slog.String("draft_id", id),
			slog.String("error_kind", string(out.ErrorKind)),
			slog.Int("status", out.StatusCode),
		)
		return s.finish(bg, out, n)
	}

	if err := s.store.Delete(bg, id); err != nil {
		// The message is out; the claim holds off a second send until it expires.
		s.logger.ErrorContext(ctx, "delete sent draft", slog.String("draft_id", id), slog.String("error", err.Error()))
	}
	s.logger.InfoContext(ctx, "draft sent", slog.String("draft_id", id), slog.Int("recipients", n))

	return s.finish(bg, Outcome{
		Status:     StatusSent,
		DraftID:    id,
		Message:    "Email sent successfully to " + strings.Join(d.Message.To, ", "),
		Recipients: d.Message.To,
	}, n)
}

// Cancel deletes a draft. Cancelling an unknown id succeeds; a draft whose
// send is in flight is left alone and reported as in_flight.
func (s *Service) Cancel(ctx context.Context, id string) Outcome {
	bg := context.WithoutCancel(ctx)

	err := s.store.Discard(ctx, id)
	if errors.Is(err, draft.ErrClaimed) {
		return s.finish(bg, Outcome{
			Status:  StatusInFlight,
			DraftID: id,
			Message: fmt.Sprintf("Error: Draft '%s' is being sent and can no longer be cancelled.", id),
		}, 0)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "cancel draft", slog.String("draft_id", id), slog.String("error", err.Error()))
		return s.finish(bg, Outcome{
			Status:  StatusError,
			DraftID: id,
			Message: fmt.Sprintf("Error: could not cancel draft '%s': %v", id, err),
		}, 0)
	}
	s.logger.InfoContext(ctx, "draft cancelled", slog.String("draft_id", id))
	return s.finish(bg, Outcome{
		Status:  StatusCancelled,
		DraftID: id,
		Message: fmt.Sprintf("Draft %s cancelled.", id),
	}, 0)
}

func failure(id string, err error) Outcome {
	out := Outcome{Status: StatusFailed, DraftID: id}
	pe, ok := email.AsProviderError(err)
	if !ok {
		out.Status = StatusError
		out.Message = "Error: " + err.Error()
		return out
	}

	out.ErrorKind = pe.Kind
	out.StatusCode = pe.StatusCode
	out.Retryable = pe.Retryable()
	switch pe.Kind {
	case email.KindAuth:
		out.Message = "Authentication failed: Token invalid or expired. " + pe.Detail
	case email.KindThrottling:
		out.Message = "Rate limit exceeded. Try again later. " + pe.Detail
	case email.KindClient:
		out.Message = "Invalid request: " + pe.Detail
	case email.KindServer:
		out.Message = "Microsoft Graph Server Error: " + pe.Detail
	default:
		out.Message = "Network error: " + pe.Detail
	}
	return out
}

func (s *Service) release(ctx context.Context, id string) {
	if err := s.store.Release(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "release draft", slog.String("draft_id", id), slog.String("error", err.Error()))
	}
}

// finish journals out and returns it. Journal failures never change the outcome.
func (s *Service) finish(ctx context.Context, out Outcome, recipients int) Outcome {
	err := s.journal.Record(ctx, journal.Attempt{
		DraftID:        out.DraftID,
		Outcome:        string(out.Status),
		ErrorKind:      string(out.ErrorKind),
		StatusCode:     out.StatusCode,
		RecipientCount: recipients,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "journal attempt", slog.String("draft_id", out.DraftID), slog.String("error", err.Error()))
	}
	return out
}
