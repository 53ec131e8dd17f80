package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Attempts are counted in clock-aligned windows. Every replica derives the same
// bucket from the wall clock, so the reset time is known without reading a TTL.
var windowCounterScript = redis.NewScript(`
local attempts = redis.call("INCR", KEYS[1])
if attempts == 1 then
  redis.call("PEXPIREAT", KEYS[1], ARGV[1])
end
return attempts
`)

const defaultRateLimitPrefix = "ledger:rate_limit"

// RedisRateLimiter is a fixed-window attempt counter shared by every API replica.
type RedisRateLimiter struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter accepts any client able to run scripts; *redis.Client and
// cluster clients both qualify.
func NewRedisRateLimiter(client redis.Scripter, prefix string) *RedisRateLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RedisRateLimiter{client: client, prefix: prefix, now: time.Now}
}

// windowKey lays out <prefix>:<scope>:<window>s:<bucket>:<subject>. Changing the
// configured window therefore never reuses a counter from the old one.
func (r *RedisRateLimiter) windowKey(scope, subject string, window time.Duration, bucket int64) string {
	return fmt.Sprintf("%s:%s:%ds:%d:%s", r.prefix, scope, int64(window/time.Second), bucket, subject)
}

// ConsumeRateLimit counts one attempt and returns the running count for the
// current window together with the seconds until it resets. Blank scopes or
// subjects and non-positive limits are never throttled.
func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.ToLower(strings.TrimSpace(subject))
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	window = window.Truncate(time.Second)
	if window < time.Second {
		window = time.Second
	}
	windowMs := window.Milliseconds()
	nowMs := r.now().UnixMilli()
	bucket := nowMs / windowMs
	resetAtMs := (bucket + 1) * windowMs

	attempts, err := windowCounterScript.Run(ctx, r.client, []string{r.windowKey(scope, subject, window, bucket)}, resetAtMs).Int64()
	if err != nil {
		return 0, 0, fmt.Errorf("count %s attempt: %w", scope, err)
	}

	retryAfter := int((resetAtMs - nowMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(attempts), retryAfter, nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
