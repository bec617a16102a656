package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RateLimitConfig struct {
	Enabled bool
	// Capacity is the bucket size; RefillPerSec tokens are added every second.
	Capacity     int
	RefillPerSec float64
	Prefix       string
}

type RateDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter takes one token for key.
type Limiter interface {
	Take(ctx context.Context, key string) (RateDecision, error)
}

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_per_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	tokens = math.min(capacity, tokens + elapsed * refill_per_ms)
	last_refill = now_ms

	local allowed = 0
	local retry_after_ms = 0
	if tokens >= 1 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.ceil((1 - tokens) / refill_per_ms)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, math.floor(tokens), retry_after_ms }
`)

// RedisTokenBucket keeps one bucket per key in a Redis hash.
type RedisTokenBucket struct {
	rdb          *redis.Client
	capacity     int
	refillPerSec float64
	now          func() time.Time
}

func NewRedisTokenBucket(rdb *redis.Client, capacity int, refillPerSec float64) *RedisTokenBucket {
	return &RedisTokenBucket{rdb: rdb, capacity: capacity, refillPerSec: refillPerSec, now: time.Now}
}

func (b *RedisTokenBucket) Take(ctx context.Context, key string) (RateDecision, error) {
	// idle buckets expire once they would be full again
	ttl := int64(math.Ceil(float64(b.capacity)/b.refillPerSec)) + 1

	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(), b.capacity, b.refillPerSec/1000, ttl).Slice()
	if err != nil {
		return RateDecision{}, err
	}
	if len(vals) != 3 {
		return RateDecision{}, fmt.Errorf("unexpected limiter result: %#v", vals)
	}
	return RateDecision{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// RateLimit rejects callers whose bucket is empty with 429. A nil limiter or a
// limiter error lets the request through.
func RateLimit(cfg RateLimitConfig, limiter Limiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	return func(c *gin.Context) {
		key := rateKey(prefix, c)
		d, err := limiter.Take(c.Request.Context(), key)
		if err != nil {
			log.Printf("ratelimit_unavailable key=%s error=%q", key, err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests, try again later",
					"details": gin.H{"retry_after": secs},
				},
			})
			return
		}
		c.Next()
	}
}

// rateKey buckets by client IP and route.
func rateKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Join([]string{prefix, "ip", ip, "route", c.Request.Method + " " + route}, ":")
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
