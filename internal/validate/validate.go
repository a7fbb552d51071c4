// Package validate normalizes recipient lists and checks outgoing messages
// against the configured sending policy. It holds no state.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// IssueType identifies a validation finding.
type IssueType string

const (
	MissingTo         IssueType = "missing_to"
	TooManyRecipients IssueType = "too_many_recipients"
	InvalidEmail      IssueType = "invalid_email"
	BlockedDomain     IssueType = "blocked_domain"
	BodyTooLarge      IssueType = "body_too_large"
	EmptySubject      IssueType = "empty_subject"

	// InvalidContentType is raised by callers that accept a body format;
	// Validate itself never reports it.
	InvalidContentType IssueType = "invalid_content_type"
)

// Blocking reports whether an issue of this type prevents staging.
// Only EmptySubject is advisory.
func (t IssueType) Blocking() bool {
	return t != EmptySubject
}

// Issue is a single validation finding. Max and Count are set for size
// limits, Items for per-address findings, AllowedDomains for BlockedDomain.
type Issue struct {
	Type           IssueType `json:"type"`
	Message        string    `json:"message"`
	Max            int       `json:"max,omitempty"`
	Count          int       `json:"count,omitempty"`
	Items          []string  `json:"items,omitempty"`
	AllowedDomains []string  `json:"allowed_domains,omitempty"`
}

// Defaults match the service configuration defaults.
const (
	DefaultMaxRecipients = 10
	DefaultMaxBodyChars  = 5000
)

var addressRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Normalize trims every entry, drops empty ones and removes duplicates
// case-insensitively. The first occurrence keeps its casing and position.
func Normalize(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		addr := strings.TrimSpace(v)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// IsValidAddress checks the minimal local@domain.tld shape.
func IsValidAddress(addr string) bool {
	return addressRe.MatchString(strings.TrimSpace(addr))
}

// Policy holds the limits a message is validated against.
type Policy struct {
	MaxRecipients  int
	MaxBodyChars   int
	allowedDomains map[string]struct{}
}

// NewPolicy builds a Policy. Domains are trimmed and lower-cased; an empty
// list leaves every domain allowed. Non-positive limits fall back to defaults.
func NewPolicy(maxRecipients, maxBodyChars int, allowedDomains []string) Policy {
	if maxRecipients <= 0 {
		maxRecipients = DefaultMaxRecipients
	}
	if maxBodyChars <= 0 {
		maxBodyChars = DefaultMaxBodyChars
	}
	p := Policy{
		MaxRecipients:  maxRecipients,
		MaxBodyChars:   maxBodyChars,
		allowedDomains: make(map[string]struct{}, len(allowedDomains)),
	}
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			p.allowedDomains[d] = struct{}{}
		}
	}
	return p
}

// AllowedDomains returns the allowlist, sorted. Empty means unrestricted.
func (p Policy) AllowedDomains() []string {
	out := make([]string, 0, len(p.allowedDomains))
	for d := range p.allowedDomains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DomainAllowed reports whether addr's domain may receive mail.
func (p Policy) DomainAllowed(addr string) bool {
	if len(p.allowedDomains) == 0 {
		return true
	}
	parts := strings.Split(strings.TrimSpace(addr), "@")
	if len(parts) != 2 {
		return false
	}
	_, ok := p.allowedDomains[strings.ToLower(parts[1])]
	return ok
}

// Input is the raw, caller-supplied message.
type Input struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Body    string
}

// Report is the result of Validate: normalized recipients plus every issue
// found, in evaluation order.
type Report struct {
	To     []string
	CC     []string
	BCC    []string
	Issues []Issue
}

// OK is true when no blocking issue was found.
func (r Report) OK() bool {
	return r.FirstBlocking() == nil
}

// Recipients returns to, cc and bcc concatenated.
func (r Report) Recipients() []string {
	all := make([]string, 0, len(r.To)+len(r.CC)+len(r.BCC))
	all = append(all, r.To...)
	all = append(all, r.CC...)
	return append(all, r.BCC...)
}

// FirstBlocking returns the first blocking issue in precedence order
// (missing_to, too_many_recipients, invalid_email, blocked_domain,
// body_too_large), or nil.
func (r Report) FirstBlocking() *Issue {
	for i := range r.Issues {
		if r.Issues[i].Type.Blocking() {
			return &r.Issues[i]
		}
	}
	return nil
}

// Validate normalizes the recipients of in and evaluates every rule
// independently, so the report lists all applicable issues.
func (p Policy) Validate(in Input) Report {
	r := Report{
		To:  Normalize(in.To),
		CC:  Normalize(in.CC),
		BCC: Normalize(in.BCC),
	}
	all := r.Recipients()

	if len(r.To) == 0 {
		r.Issues = append(r.Issues, Issue{
			Type:    MissingTo,
			Message: "At least one recipient is required in 'to'.",
		})
	}

	if len(all) > p.MaxRecipients {
		r.Issues = append(r.Issues, Issue{
			Type:    TooManyRecipients,
			Message: fmt.Sprintf("Too many recipients (%d). Maximum: %d.", len(all), p.MaxRecipients),
			Max:     p.MaxRecipients,
			Count:   len(all),
		})
	}

	var invalid, blocked []string
	for _, addr := range all {
		switch {
		case !IsValidAddress(addr):
			invalid = append(invalid, addr)
		case !p.DomainAllowed(addr):
			blocked = append(blocked, addr)
		}
	}
	if len(invalid) > 0 {
		r.Issues = append(r.Issues, Issue{
			Type:    InvalidEmail,
			Message: "Emails with invalid format.",
			Items:   invalid,
		})
	}
	if len(blocked) > 0 {
		r.Issues = append(r.Issues, Issue{
			Type:           BlockedDomain,
			Message:        "Recipients outside the domain allowlist.",
			Items:          blocked,
			AllowedDomains: p.AllowedDomains(),
		})
	}

	if n := utf8.RuneCountInString(in.Body); n > p.MaxBodyChars {
		r.Issues = append(r.Issues, Issue{
			Type:    BodyTooLarge,
			Message: fmt.Sprintf("Body too long (%d chars). Maximum: %d.", n, p.MaxBodyChars),
			Max:     p.MaxBodyChars,
			Count:   n,
		})
	}

	if strings.TrimSpace(in.Subject) == "" {
		r.Issues = append(r.Issues, Issue{
			Type:    EmptySubject,
			Message: "Empty subject (allowed, but not recommended).",
		})
	}

	return r
}
