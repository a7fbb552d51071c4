// Package draft stores staged messages until they are confirmed, cancelled
// or expire.
//
// Expiry is enforced when a draft is read: a draft older than the store's
// expiry window is never returned, and the read that observes it removes it.
// Cleanup is an optional sweep that reclaims drafts nobody reads again.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/gsarma/mailgate/internal/email"
)

// DefaultExpiry is the lifetime of an unconfirmed draft.
const DefaultExpiry = 600 * time.Second

var (
	// ErrNotFound is returned for unknown, consumed or expired drafts.
	ErrNotFound = errors.New("draft: not found or expired")

	// ErrClaimed is returned by Claim when another caller already holds the draft.
	ErrClaimed = errors.New("draft: send already in flight")
)

// Draft is a staged message. It is never mutated after Stage.
type Draft struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Message   email.Message `json:"message"`
}

// Store is the expiring draft cache. Operations on one id are atomic with
// respect to each other; distinct ids are independent.
type Store interface {
	// Stage records msg under a fresh id.
	Stage(ctx context.Context, msg email.Message) (Draft, error)
	// Get returns the draft without consuming it.
	Get(ctx context.Context, id string) (Draft, error)
	// Claim marks the draft as being sent. At most one caller holds a claim
	// on an id at a time; others get ErrClaimed until Release or Delete.
	Claim(ctx context.Context, id string) (Draft, error)
	// Release drops a claim, leaving the draft staged.
	Release(ctx context.Context, id string) error
	// Delete removes the draft and any claim. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
	// Discard removes an unclaimed draft. It returns ErrClaimed while a send
	// holds the draft; discarding an absent id is a no-op.
	Discard(ctx context.Context, id string) error
	// Cleanup removes expired drafts and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)
	// Expiry is the configured lifetime of a draft.
	Expiry() time.Duration
}

func expired(createdAt, now time.Time, expiry time.Duration) bool {
	return now.Sub(createdAt) > expiry
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
