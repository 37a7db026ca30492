package middleware

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
)

func sharedRedis() *redis.Client {
	redisOnce.Do(func() {
		url := config.Config("REDIS_URL")
		if url == "" {
			return
		}
		opts, err := redis.ParseURL(url)
		if err != nil {
			logger.Log.Errorw("invalid REDIS_URL, falling back to in-process rate limiting", "error", err)
			return
		}
		redisClient = redis.NewClient(opts)
	})
	return redisClient
}

// RateLimit limits requests per client IP on sensitive routes. With REDIS_URL
// set the count is shared across instances, otherwise each process keeps its
// own token buckets.
func RateLimit(prefix string) fiber.Handler {
	perMinute := config.Int("RATE_LIMIT_PER_MINUTE")
	if perMinute <= 0 {
		perMinute = 60
	}
	if r := sharedRedis(); r != nil {
		return NewRedisRateLimiter(r, "ratelimit:"+prefix, perMinute, time.Minute).Handler()
	}
	return NewIPRateLimiter(perMinute).Handler()
}

type RedisRateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRedisRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window}
}

func (r *RedisRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		key := fmt.Sprintf("%s:%s", r.Prefix, clientIP(c))
		count, err := r.Redis.Incr(ctx, key).Result()
		if err != nil {
			// Fail open so a Redis outage does not lock users out of login.
			logger.Log.Warnw("rate limiter unavailable", "error", err)
			return c.Next()
		}
		if count == 1 {
			r.Redis.Expire(ctx, key, r.Window)
		}
		if count > int64(r.Limit) {
			return utils.Fail(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
		}
		return c.Next()
	}
}

type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	burst := perMinute / 6
	if burst < 5 {
		burst = 5
	}
	l := &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
	}
	go l.cleanupVisitors()
	return l
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	if v, ok := l.visitors.Load(ip); ok {
		vi := v.(*visitor)
		vi.lastSeen = time.Now()
		return vi.limiter
	}
	v, _ := l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: time.Now()})
	return v.(*visitor).limiter
}

func (l *IPRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		cutoff := time.Now().Add(-5 * time.Minute)
		l.visitors.Range(func(k, v interface{}) bool {
			if v.(*visitor).lastSeen.Before(cutoff) {
				l.visitors.Delete(k)
			}
			return true
		})
	}
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.getLimiter(ip).Allow() {
			logger.Log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return utils.Fail(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
