package ratelimit

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
)

const keyPrefix = "shelfdesk:ratelimit"

// tokenBucket refills refill_tokens every interval_ms up to capacity and takes
// one token per call. It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// Limiter is a redis backed token bucket keyed by route and client IP. Without
// redis, or when redis fails, requests are let through.
type Limiter struct {
	rdb      *redis.Client
	capacity int
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
}

// New connects to redis_url when it is set. An empty URL yields a limiter that
// never limits.
func New(cfg *config.Config) (*Limiter, error) {
	l := &Limiter{
		capacity: cfg.AuthRateLimitCapacity,
		interval: cfg.AuthRateLimitRefillInterval,
		log:      logger.New(),
		now:      time.Now,
	}
	if cfg.RedisURL == "" {
		return l, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis_url")
	}
	l.rdb = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.rdb.Ping(ctx).Err(); err != nil {
		l.log.Err(err).Warn("redis unreachable, rate limiting will fail open")
	}

	return l, nil
}

func (l *Limiter) Close() error {
	if l.rdb == nil {
		return nil
	}
	return errors.WithStack(l.rdb.Close())
}

func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	if l.rdb == nil {
		return next
	}

	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key := l.key(c)

		ttl := int64(math.Ceil(l.interval.Seconds() * float64(l.capacity)))
		if ttl < 1 {
			ttl = 1
		}
		args := []any{
			l.now().UnixMilli(),
			l.capacity,
			1,
			l.interval.Milliseconds(),
			ttl,
		}

		vals, err := tokenBucket.Run(ctx, l.rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			logger.FromContext(ctx).Err(err).Warn("rate limit check failed", logger.Data{"key": key})
			return next(c)
		}

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

		if vals[0] != 1 {
			secs := retryAfterSeconds(vals[2])
			h.Set("Retry-After", strconv.Itoa(secs))
			return errcodes.TooManyRequests(secs)
		}

		return next(c)
	}
}

func (l *Limiter) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{keyPrefix, c.Request().Method + " " + c.Path(), ip}, ":")
}

func retryAfterSeconds(ms int64) int {
	secs := int(math.Ceil(float64(ms) / 1000.0))
	if secs < 1 {
		secs = 1
	}
	return secs
}
