package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"newsboard/internal/models"
	"newsboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

const (
	CodeRateLimited          = "RATE_LIMITED"
	CodeRateLimitUnavailable = "RATE_LIMIT_UNAVAILABLE"
)

var errNoRateLimitStore = errors.New("redis client is nil")

// Rule is a fixed-window limit on one board action.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// Board limits. Authenticated actions count per user, anonymous ones per IP.
var (
	SignUpRule        = Rule{Name: "sign_up", Limit: 3, Window: 10 * time.Minute}
	LogInRule         = Rule{Name: "log_in", Limit: 10, Window: 5 * time.Minute}
	SearchRule        = Rule{Name: "search", Limit: 10, Window: time.Minute}
	CreatePostRule    = Rule{Name: "create_post", Limit: 5, Window: 5 * time.Minute}
	CreateCommentRule = Rule{Name: "create_comment", Limit: 10, Window: time.Minute}
	LikeRule          = Rule{Name: "like", Limit: 30, Window: time.Minute}
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts actions in Redis. It is a no-op in the test and
// development environments.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,
		enabled: env != "test" && env != "development" && env != "",
	}
}

// Allow records one action by subject under rule.
func (l *RateLimiter) Allow(ctx context.Context, rule Rule, subject string) (Decision, error) {
	if !l.enabled {
		return Decision{Allowed: true, Remaining: rule.Limit}, nil
	}
	if l.rdb == nil {
		return Decision{}, errNoRateLimitStore
	}

	key := fmt.Sprintf("rl:%s:%s", rule.Name, subject)
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if cnt == 1 {
		l.rdb.Expire(ctx, key, rule.Window)
	}

	if cnt <= int64(rule.Limit) {
		return Decision{Allowed: true, Remaining: rule.Limit - int(cnt)}, nil
	}
	retry, err := l.rdb.PTTL(ctx, key).Result()
	if err != nil || retry <= 0 {
		retry = rule.Window
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

// Limit returns a Fiber middleware enforcing rule. Mount it after
// AuthRequired so signed-in users are counted by id rather than address.
func (l *RateLimiter) Limit(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := l.Allow(c.UserContext(), rule, rateSubject(c))
		if err != nil {
			if rule.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					"path", c.Path(), "rule", rule.Name, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Rate limiting is temporarily unavailable",
					Code:  CodeRateLimitUnavailable,
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		if decision.Allowed {
			c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			return c.Next()
		}

		observability.RateLimitRejections.WithLabelValues(rule.Name).Inc()
		c.Set("X-RateLimit-Remaining", "0")
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Error: fmt.Sprintf("Too many %s requests, try again later", rule.Name),
			Code:  CodeRateLimited,
		})
	}
}

func rateSubject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}
