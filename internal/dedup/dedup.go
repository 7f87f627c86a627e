// Package dedup drops redelivered webhook events. Messenger platforms retry
// delivery on slow acks, so each event id is claimed once in redis with a
// short TTL; a second claim for the same id means a duplicate.
package dedup

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimTTL = 10 * time.Minute

// Deduper tracks seen event ids. A nil Deduper is valid and claims
// everything, so callers without redis degrade to at-least-once handling.
type Deduper struct {
	rdb    *redis.Client
	prefix string
}

// New connects to redis at the given URL. Empty URL yields a nil Deduper.
func New(redisURL string) (*Deduper, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, nil
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Deduper{rdb: rdb, prefix: "chessbot:mid:"}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(rdb *redis.Client) *Deduper {
	return &Deduper{rdb: rdb, prefix: "chessbot:mid:"}
}

func (d *Deduper) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}

// Claim reports whether this event id is seen for the first time. Redis
// errors are returned so the caller can decide to process anyway.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	if d == nil || d.rdb == nil || eventID == "" {
		return true, nil
	}
	ok, err := d.rdb.SetNX(ctx, d.prefix+eventID, "1", claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
