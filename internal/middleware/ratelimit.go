package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// luaRateLimit: Redis sliding-window limiter, atomic in one Lua call.
// KEYS[1]=limit key, ARGV[1]=now, ARGV[2]=window start, ARGV[3]=window secs,
// ARGV[4]=member, ARGV[5]=limit. Returns the in-window count, or -1 when
// over the limit.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// SessionRateLimit limits requests per browser session (falling back to IP
// when no session cookie exists yet). Applied to the checkout endpoints,
// where a stuck client mashing submit is the common abuse case.
func SessionRateLimit(rdb *rd.Client, cookieName string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if sid, err := c.Cookie(cookieName); err == nil && sid != "" {
			key = fmt.Sprintf("storefront:rate:session:%s", sid)
		} else {
			key = fmt.Sprintf("storefront:rate:ip:%s", c.ClientIP())
		}

		now := time.Now().Unix()
		windowSec := int64(window.Seconds())
		windowStart := now - windowSec
		member := fmt.Sprintf("%d-%d", now, time.Now().UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, windowSec, member, limit).Int()
		if err != nil {
			// Redis failure degrades to letting the request through.
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "too many requests, try again shortly",
			})
			return
		}
		c.Next()
	}
}
