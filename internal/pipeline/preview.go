package pipeline

import (
	"context"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/validate"
)

const previewChars = 200

// Preview is the result of a side-effect-free validation pass.
type Preview struct {
	OK         bool             `json:"ok"`
	Issues     []validate.Issue `json:"issues"`
	Normalized Recipients       `json:"normalized"`
	Message    MessageSummary   `json:"message"`
	Policy     PolicySummary    `json:"policy"`
	NextStep   string           `json:"next_step"`
}

// Recipients are the normalized recipient lists.
type Recipients struct {
	To  []string `json:"to"`
	CC  []string `json:"cc"`
	BCC []string `json:"bcc"`
}

// MessageSummary describes the body without echoing it in full.
// TextPreview is set for HTML bodies: the preview with markup removed.
type MessageSummary struct {
	Subject     string            `json:"subject"`
	ContentType email.ContentType `json:"content_type"`
	BodyPreview string            `json:"body_preview"`
	TextPreview string            `json:"text_preview,omitempty"`
	BodyLength  int               `json:"body_length"`
}

// PolicySummary exposes the limits the message was checked against.
type PolicySummary struct {
	AllowedDomains []string `json:"allowed_domains"`
	MaxRecipients  int      `json:"max_recipients"`
	MaxBodyChars   int      `json:"max_body_chars"`
}

const (
	nextStepOK      = "If ok=true, call prepare_email to stage the draft, then confirm_send to transmit it."
	nextStepBlocked = "Fix the blocking issues and call preview_email again."
)

// Preview validates req and reports every issue. It never touches the store.
func (s *Service) Preview(_ context.Context, req Request) Preview {
	rep := s.check(req)
	ct, err := req.contentType()
	if err != nil {
		ct = req.ContentType
	}

	p := Preview{
		OK:         rep.OK(),
		Issues:     rep.Issues,
		Normalized: Recipients{To: rep.To, CC: rep.CC, BCC: rep.BCC},
		Message: MessageSummary{
			Subject:     req.Subject,
			ContentType: ct,
			BodyPreview: truncate(req.Body, previewChars),
			BodyLength:  utf8.RuneCountInString(req.Body),
		},
		Policy: PolicySummary{
			AllowedDomains: s.policy.AllowedDomains(),
			MaxRecipients:  s.policy.MaxRecipients,
			MaxBodyChars:   s.policy.MaxBodyChars,
		},
		NextStep: nextStepOK,
	}
	if p.Issues == nil {
		p.Issues = []validate.Issue{}
	}
	if !p.OK {
		p.NextStep = nextStepBlocked
	}
	if p.Message.ContentType == email.ContentHTML {
		p.Message.TextPreview = truncate(s.plainText(req.Body), previewChars)
	}
	return p
}

// plainText strips markup and collapses whitespace.
func (s *Service) plainText(body string) string {
	text := html.UnescapeString(s.stripper.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}

// truncate keeps the first n characters, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
