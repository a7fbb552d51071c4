package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/validate"
)

// StatusDraftCreated is the status line of a successful prepare.
const StatusDraftCreated = "Draft created. ACTION REQUIRED: Call confirm_send(draft_id) to send."

// Prepared describes a newly staged draft.
type Prepared struct {
	Status           string         `json:"status"`
	DraftID          string         `json:"draft_id"`
	ExpiresInSeconds int            `json:"expires_in_seconds"`
	Preview          PreparedDigest `json:"preview"`
}

// PreparedDigest is the coarse preview returned by prepare.
type PreparedDigest struct {
	Subject         string `json:"subject"`
	RecipientsCount int    `json:"recipients_count"`
}

// RejectedError is returned by Prepare when validation finds a blocking issue.
type RejectedError struct {
	Issue validate.Issue
}

func (e *RejectedError) Error() string {
	switch e.Issue.Type {
	case validate.MissingTo:
		return "Missing 'to' recipients"
	case validate.TooManyRecipients:
		return fmt.Sprintf("Too many recipients (max %d)", e.Issue.Max)
	case validate.InvalidEmail:
		return "Invalid email format detected"
	case validate.BlockedDomain:
		return "Domain not allowed by policy"
	case validate.BodyTooLarge:
		return fmt.Sprintf("Body too long (max %d)", e.Issue.Max)
	case validate.InvalidContentType:
		return "Unsupported content type"
	default:
		return e.Issue.Message
	}
}

// Prepare validates req and stages it. On a blocking issue it returns a
// *RejectedError for the first issue in precedence order and stages nothing.
func (s *Service) Prepare(ctx context.Context, req Request) (*Prepared, error) {
	rep := s.check(req)
	if issue := rep.FirstBlocking(); issue != nil {
		return nil, &RejectedError{Issue: *issue}
	}
	ct, _ := req.contentType()

	msg := email.Message{
		To:          rep.To,
		CC:          rep.CC,
		BCC:         rep.BCC,
		Subject:     req.Subject,
		Body:        req.Body,
		ContentType: ct,
	}
	d, err := s.store.Stage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("stage draft: %w", err)
	}

	s.logger.InfoContext(ctx, "draft staged",
		slog.String("draft_id", d.ID),
		slog.Int("recipients", msg.RecipientCount()),
		slog.String("content_type", string(msg.ContentType)),
	)

	return &Prepared{
		Status:           StatusDraftCreated,
		DraftID:          d.ID,
		ExpiresInSeconds: int(s.store.Expiry().Seconds()),
		Preview: PreparedDigest{
			Subject:         msg.Subject,
			RecipientsCount: msg.RecipientCount(),
		},
	}, nil
}
