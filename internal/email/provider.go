package email

import (
	"context"
	"fmt"
	"strings"
)

// ContentType is the body format of a message.
type ContentType string

const (
	ContentText ContentType = "Text"
	ContentHTML ContentType = "HTML"
)

// ParseContentType maps a caller-supplied value onto a ContentType.
// Empty defaults to Text; matching is case-insensitive.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return ContentText, nil
	case "html":
		return ContentHTML, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", s)
	}
}

// Message is a validated, normalized email ready to be staged or sent.
type Message struct {
	To          []string    `json:"to"`
	CC          []string    `json:"cc"`
	BCC         []string    `json:"bcc"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	ContentType ContentType `json:"content_type"`
}

// RecipientCount is the total of to, cc and bcc.
func (m Message) RecipientCount() int {
	return len(m.To) + len(m.CC) + len(m.BCC)
}

// Provider transmits a message on behalf of the user owning accessToken.
// A nil error means the provider acknowledged the message; any failure is a
// *ProviderError.
type Provider interface {
	Send(ctx context.Context, accessToken string, msg Message) error
}
