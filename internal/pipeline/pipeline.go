// Package pipeline implements the two-phase send flow: validate and stage a
// draft, then transmit it only on an explicit confirmation.
//
// A draft is destroyed if and only if the provider acknowledged it, or the
// caller cancelled it, or it expired. Every provider failure leaves the draft
// staged so confirm can be retried.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gsarma/mailgate/internal/draft"
	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/journal"
	"github.com/gsarma/mailgate/internal/logger"
	"github.com/gsarma/mailgate/internal/oauth"
	"github.com/gsarma/mailgate/internal/validate"
)

// Request is a caller-supplied message, before normalization.
type Request struct {
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	ContentType email.ContentType
}

func (r Request) input() validate.Input {
	return validate.Input{To: r.To, CC: r.CC, BCC: r.BCC, Subject: r.Subject, Body: r.Body}
}

// contentType canonicalizes ContentType. Unknown values are reported as an
// invalid_content_type issue by check.
func (r Request) contentType() (email.ContentType, error) {
	return email.ParseContentType(string(r.ContentType))
}

// check is the single validation path shared by Preview and Prepare.
func (s *Service) check(req Request) validate.Report {
	rep := s.policy.Validate(req.input())
	if _, err := req.contentType(); err != nil {
		rep.Issues = append(rep.Issues, validate.Issue{
			Type:    validate.InvalidContentType,
			Message: fmt.Sprintf("Content type %q is not supported. Use Text or HTML.", req.ContentType),
		})
	}
	return rep
}

// Service orchestrates the validator, draft store, credential provider and
// mail provider. It holds no draft state of its own.
type Service struct {
	policy   validate.Policy
	store    draft.Store
	provider email.Provider
	tokens   oauth.TokenProvider
	journal  journal.Recorder
	logger   *slog.Logger
	stripper *bluemonday.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records confirm and cancel outcomes.
func WithJournal(r journal.Recorder) Option {
	return func(s *Service) {
		s.journal = r
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New wires a Service.
func New(policy validate.Policy, store draft.Store, provider email.Provider, tokens oauth.TokenProvider, opts ...Option) *Service {
	s := &Service{
		policy:   policy,
		store:    store,
		provider: provider,
		tokens:   tokens,
		journal:  journal.Nop{},
		logger:   logger.NewNope(),
		stripper: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
