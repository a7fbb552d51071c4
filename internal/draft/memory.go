package draft

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gsarma/mailgate/internal/email"
)

type entry struct {
	draft   Draft
	claimed bool
}

// Memory is an in-process Store guarded by a single mutex.
type Memory struct {
	mu     sync.Mutex
	items  map[string]*entry
	expiry time.Duration
	now    func() time.Time
	newID  func() string
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithIDGenerator overrides id generation. Generated ids that collide with a
// live draft are discarded and regenerated.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *Memory) {
		m.newID = fn
	}
}

// NewMemory creates an in-memory store. A non-positive expiry uses DefaultExpiry.
func NewMemory(expiry time.Duration, opts ...MemoryOption) *Memory {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	m := &Memory{
		items:  make(map[string]*entry),
		expiry: expiry,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Expiry() time.Duration { return m.expiry }

func (m *Memory) Stage(_ context.Context, msg email.Message) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for {
		if _, taken := m.items[id]; !taken {
			break
		}
		id = m.newID()
	}

	d := Draft{ID: id, CreatedAt: m.now(), Message: msg}
	m.items[id] = &entry{draft: d}
	return d, nil
}

// lookup returns the live entry for id, evicting it if expired.
// Caller must hold m.mu.
func (m *Memory) lookup(id string) (*entry, bool) {
	e, ok := m.items[id]
	if !ok {
		return nil, false
	}
	if expired(e.draft.CreatedAt, m.now(), m.expiry) {
		delete(m.items, id)
		return nil, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return Draft{}, ErrNotFound
	}
	return e.draft, nil
}

func (m *Memory) Claim(_ context.Context, id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return Draft{}, ErrNotFound
	}
	if e.claimed {
		return Draft{}, ErrClaimed
	}
	e.claimed = true
	return e.draft, nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[id]; ok {
		e.claimed = false
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, id)
	return nil
}

func (m *Memory) Discard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(id)
	if !ok {
		return nil
	}
	if e.claimed {
		return ErrClaimed
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.items {
		if expired(e.draft.CreatedAt, now, m.expiry) {
			delete(m.items, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of entries held, including expired ones not yet evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
