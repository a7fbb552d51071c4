package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gsarma/mailgate/internal/email"
)

const (
	defaultPrefix   = "mailgate"
	defaultClaimTTL = 30 * time.Second
	scanCount       = 100
)

// discardScript deletes KEYS[1] (the draft) unless KEYS[2] (its claim) is held.
// Returns 1 when the draft is gone afterwards, 0 when it is claimed.
var discardScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

// Redis is a Store shared by every server instance pointing at the same
// Redis. Drafts are JSON values with a TTL equal to the expiry window; claims
// are separate SETNX keys that expire after the claim TTL, so a claim left
// behind by a crashed or disconnected sender does not block retries for the
// whole expiry window.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	expiry   time.Duration
	claimTTL time.Duration
	now      func() time.Time
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix namespaces every key. Default: "mailgate".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = strings.TrimSuffix(prefix, ":")
	}
}

// WithRedisClock overrides the time source used for CreatedAt and expiry checks.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *Redis) {
		r.now = now
	}
}

// WithClaimTTL bounds how long a claim outlives its sender. It should exceed
// the provider send timeout. Default: 30s, never longer than the expiry.
func WithClaimTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.claimTTL = ttl
	}
}

// NewRedis creates a Redis-backed store. A non-positive expiry uses DefaultExpiry.
func NewRedis(client redis.UniversalClient, expiry time.Duration, opts ...RedisOption) *Redis {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	r := &Redis{client: client, prefix: defaultPrefix, expiry: expiry, claimTTL: defaultClaimTTL, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.claimTTL <= 0 || r.claimTTL > r.expiry {
		r.claimTTL = min(defaultClaimTTL, r.expiry)
	}
	return r
}

// OpenRedis parses a redis:// or rediss:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) draftKey(id string) string { return r.prefix + ":draft:" + id }
func (r *Redis) claimKey(id string) string { return r.prefix + ":claim:" + id }

func (r *Redis) Expiry() time.Duration { return r.expiry }

func (r *Redis) Stage(ctx context.Context, msg email.Message) (Draft, error) {
	d := Draft{ID: uuid.NewString(), CreatedAt: r.now().UTC(), Message: msg}
	data, err := json.Marshal(d)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal draft: %w", err)
	}

	// SETNX so an id is never rebound to a second payload.
	ok, err := r.client.SetNX(ctx, r.draftKey(d.ID), data, r.expiry).Result()
	if err != nil {
		return Draft{}, fmt.Errorf("stage draft: %w", err)
	}
	if !ok {
		return Draft{}, fmt.Errorf("stage draft: id %s already in use", d.ID)
	}
	return d, nil
}

func (r *Redis) Get(ctx context.Context, id string) (Draft, error) {
	data, err := r.client.Get(ctx, r.draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, ErrNotFound
		}
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}

	// Key TTLs and the expiry window can disagree by clock skew; the window wins.
	if expired(d.CreatedAt, r.now(), r.expiry) {
		if err := r.client.Del(ctx, r.draftKey(id), r.claimKey(id)).Err(); err != nil {
			return Draft{}, fmt.Errorf("evict draft: %w", err)
		}
		return Draft{}, ErrNotFound
	}
	return d, nil
}

// Claim takes the claim key before reading the draft, so a reader racing a
// successful send either loses the claim or finds the draft gone.
func (r *Redis) Claim(ctx context.Context, id string) (Draft, error) {
	ok, err := r.client.SetNX(ctx, r.claimKey(id), "1", r.claimTTL).Result()
	if err != nil {
		return Draft{}, fmt.Errorf("claim draft: %w", err)
	}
	if !ok {
		if _, err := r.Get(ctx, id); err != nil {
			return Draft{}, err
		}
		return Draft{}, ErrClaimed
	}

	d, err := r.Get(ctx, id)
	if err != nil {
		_ = r.client.Del(ctx, r.claimKey(id)).Err()
		return Draft{}, err
	}
	return d, nil
}

func (r *Redis) Release(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.claimKey(id)).Err(); err != nil {
		return fmt.Errorf("release draft: %w", err)
	}
	return nil
}

// Delete removes the draft and its claim in one command.
func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.draftKey(id), r.claimKey(id)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (r *Redis) Discard(ctx context.Context, id string) error {
	gone, err := discardScript.Run(ctx, r.client, []string{r.draftKey(id), r.claimKey(id)}).Int()
	if err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}
	if gone == 0 {
		return ErrClaimed
	}
	return nil
}

// Cleanup scans the prefix for drafts past the expiry window and deletes them
// with their claims. Key TTLs normally get there first; the sweep catches
// drafts whose TTL and window disagree.
func (r *Redis) Cleanup(ctx context.Context) (int, error) {
	now := r.now()
	draftPrefix := r.draftKey("")
	removed := 0

	iter := r.client.Scan(ctx, 0, draftPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("sweep drafts: %w", err)
		}

		var d Draft
		if err := json.Unmarshal(data, &d); err != nil {
			return removed, fmt.Errorf("sweep drafts: decode %s: %w", key, err)
		}
		if !expired(d.CreatedAt, now, r.expiry) {
			continue
		}

		id := strings.TrimPrefix(key, draftPrefix)
		n, err := r.client.Del(ctx, key, r.claimKey(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("sweep drafts: %w", err)
		}
		if n > 0 {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("sweep drafts: %w", err)
	}
	return removed, nil
}
