package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auction-engine/internal/config"
)

// tokenBucket refills continuously at refill/interval tokens per
// millisecond and takes one token.  It returns {allowed, tokens_left,
// retry_after_ms}; tokens_left is floored.
var tokenBucket = redis.NewScript(`
local cap, refill, per_ms = tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local now = tonumber(ARGV[1])
local rate = refill / per_ms

local h = redis.call('HMGET', KEYS[1], 't', 'at')
local have = tonumber(h[1]) or cap
local at = tonumber(h[2]) or now
if now > at then
  have = math.min(cap, have + (now - at) * rate)
end

local ok, wait = 0, 0
if have >= 1 then
  ok = 1
  have = have - 1
else
  wait = math.ceil((1 - have) / rate)
end

redis.call('HSET', KEYS[1], 't', tostring(have), 'at', now)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return { ok, math.floor(have), wait }
`)

// NewTokenBucket limits requests per key with a Redis token bucket.  It is
// a no-op when disabled or without Redis, and fails open when Redis errors
// so that bidding never depends on the limiter being up.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log = log.With().Str("component", "ratelimit").Logger()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(vals) != 3 {
				log.Warn().Err(err).Str("key", key).Msg("limiter unavailable, allowing request")
				return next(c)
			}
			allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000))
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Debug().Str("key", key).Int64("retry_ms", retryMs).Msg("rate limited")
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := "user:" + rateUser(c)
	route := "route:" + c.Request().Method + " " + c.Path()

	var key string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		key = "ip:" + ip
	case "user":
		key = user
	case "ip_user":
		key = "ip:" + ip + ":" + user
	case "user_route":
		key = user + ":" + route
	default:
		key = "ip:" + ip + ":" + user + ":" + route
	}
	return cfg.Prefix + ":" + key
}
