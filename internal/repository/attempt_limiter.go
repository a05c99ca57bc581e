package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow admits at most ARGV[3] members per ARGV[2] ms in a sorted set.
// Returns {allowed, retryAfterMs}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
redis.call("ZADD", key, now, member)
local count = redis.call("ZCARD", key)
redis.call("PEXPIRE", key, window)

if count <= limit then
  return {1, 0}
end

redis.call("ZREM", key, member)

local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if oldest[2] ~= nil then
  local retryAfter = (tonumber(oldest[2]) + window) - now
  if retryAfter < 0 then retryAfter = 0 end
  return {0, retryAfter}
end
return {0, window}
`)

// AttemptLimiter throttles redemption attempts using a Redis sliding window.
type AttemptLimiter struct {
	client redis.Scripter
	prefix string
}

// NewAttemptLimiter constructs a limiter. A nil client disables limiting.
func NewAttemptLimiter(client redis.Scripter) *AttemptLimiter {
	return &AttemptLimiter{client: client, prefix: "share_links:attempts:"}
}

// Allow records an attempt for key and reports whether it is within limit.
func (l *AttemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l == nil || l.client == nil || limit <= 0 {
		return true, 0, nil
	}

	res, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		time.Now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis attempt limiter: %w", err)
	}

	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return false, 0, fmt.Errorf("unexpected limiter result: %T %v", res, res)
	}

	allowed, _ := arr[0].(int64)
	var retryAfterMs int64
	switch v := arr[1].(type) {
	case int64:
		retryAfterMs = v
	case string:
		retryAfterMs, _ = strconv.ParseInt(v, 10, 64)
	}
	return allowed == 1, time.Duration(retryAfterMs) * time.Millisecond, nil
}
