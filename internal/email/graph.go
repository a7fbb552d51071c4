package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultGraphURL is the Microsoft Graph v1.0 root.
	DefaultGraphURL = "https://graph.microsoft.com/v1.0"
	// DefaultSendTimeout bounds a single sendMail request.
	DefaultSendTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

// GraphConfig configures the Microsoft Graph sender.
type GraphConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GraphProvider sends mail through the Graph /me/sendMail endpoint.
type GraphProvider struct {
	baseURL string
	client  *http.Client
}

// NewGraphProvider builds a GraphProvider. Zero config values use defaults.
func NewGraphProvider(cfg GraphConfig) *GraphProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSendTimeout
	}
	return &GraphProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphMessage struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType ContentType `json:"contentType"`
		Content     string      `json:"content"`
	} `json:"body"`
	ToRecipients  []graphAddress `json:"toRecipients"`
	CcRecipients  []graphAddress `json:"ccRecipients"`
	BccRecipients []graphAddress `json:"bccRecipients"`
}

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems string       `json:"saveToSentItems"`
}

func recipients(addrs []string) []graphAddress {
	out := make([]graphAddress, len(addrs))
	for i, a := range addrs {
		out[i].EmailAddress.Address = a
	}
	return out
}

func buildSendMail(msg Message) sendMailRequest {
	gm := graphMessage{
		Subject:       msg.Subject,
		ToRecipients:  recipients(msg.To),
		CcRecipients:  recipients(msg.CC),
		BccRecipients: recipients(msg.BCC),
	}
	gm.Body.ContentType = msg.ContentType
	if gm.Body.ContentType == "" {
		gm.Body.ContentType = ContentText
	}
	gm.Body.Content = msg.Body
	return sendMailRequest{Message: gm, SaveToSentItems: "true"}
}

// Send performs exactly one sendMail request. Graph answers 202 Accepted and
// delivers asynchronously; only a 2xx status counts as success.
func (p *GraphProvider) Send(ctx context.Context, accessToken string, msg Message) error {
	body, err := json.Marshal(buildSendMail(msg))
	if err != nil {
		return fmt.Errorf("marshal sendMail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Kind: KindNetwork, Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return Classify(resp.StatusCode, errorDetail(raw))
}

// errorDetail reads error.message from a Graph error body, falling back to
// the raw text.
func errorDetail(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
