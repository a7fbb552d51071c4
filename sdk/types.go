package mailgate

// HealthResponse is returned by /healthz and /readyz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one dependency's readiness.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// --- Drafts ---

// Message is an outgoing message. ContentType is "Text" (default) or "HTML".
type Message struct {
	To          []string `json:"to"`
	CC          []string `json:"cc,omitempty"`
	BCC         []string `json:"bcc,omitempty"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	ContentType string   `json:"content_type,omitempty"`
}

// Issue is a validation finding.
type Issue struct {
	Type           string   `json:"type"`
	Message        string   `json:"message"`
	Max            int      `json:"max,omitempty"`
	Count          int      `json:"count,omitempty"`
	Items          []string `json:"items,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// Preview is returned by preview_email.
type Preview struct {
	OK         bool    `json:"ok"`
	Issues     []Issue `json:"issues"`
	Normalized struct {
		To  []string `json:"to"`
		CC  []string `json:"cc"`
		BCC []string `json:"bcc"`
	} `json:"normalized"`
	Message struct {
		Subject     string `json:"subject"`
		ContentType string `json:"content_type"`
		BodyPreview string `json:"body_preview"`
		TextPreview string `json:"text_preview,omitempty"`
		BodyLength  int    `json:"body_length"`
	} `json:"message"`
	Policy struct {
		AllowedDomains []string `json:"allowed_domains"`
		MaxRecipients  int      `json:"max_recipients"`
		MaxBodyChars   int      `json:"max_body_chars"`
	} `json:"policy"`
	NextStep string `json:"next_step"`
}

// Prepared is returned by prepare_email.
type Prepared struct {
	Status           string `json:"status"`
	DraftID          string `json:"draft_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
	Preview          struct {
		Subject         string `json:"subject"`
		RecipientsCount int    `json:"recipients_count"`
	} `json:"preview"`
}

type draftRequest struct {
	DraftID string `json:"draft_id"`
}

// Outcome statuses.
const (
	StatusSent         = "sent"
	StatusNotFound     = "not_found"
	StatusInFlight     = "in_flight"
	StatusAuthRequired = "auth_required"
	StatusFailed       = "failed"
	StatusCancelled    = "cancelled"
	StatusError        = "error"
)

// Outcome is returned by confirm_send and cancel_draft.
type Outcome struct {
	Status     string   `json:"status"`
	DraftID    string   `json:"draft_id"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
}

// Sent reports whether the provider accepted the message.
func (o *Outcome) Sent() bool { return o.Status == StatusSent }

// AuthStatus is returned by check_auth_status.
type AuthStatus struct {
	Status  string   `json:"status"`
	Valid   bool     `json:"valid"`
	User    string   `json:"user,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`
	Message string   `json:"message"`
}
