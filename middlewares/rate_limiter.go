package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Usage:
//
//	r.POST("/booking-request", middleware.NewRateLimiter(rdb, "10-1m", "intake"), handler)
//	r.POST("/payment/session", middleware.CombinedRateLimiter(rdb, "payment", "5-1m", "30-1h"), handler)

// createStore returns a Redis-backed store shared across instances, or a
// process-local store when no Redis client is configured.
func createStore(rdb *redis.Client, routeID string, period time.Duration) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          fmt.Sprintf("rate_limiter:%s", routeID),
		MaxRetry:        3,
		CleanUpInterval: period,
	}
	if rdb == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}

	store, err := redisstore.NewStoreWithOptions(rdb, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// ParseCustomRate allows formats like "10-2m", "30-20m", "5-1h", "20-10s", etc.
func ParseCustomRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(rateStr, "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	var unit time.Duration
	switch {
	case strings.HasSuffix(durationStr, "s"):
		unit = time.Second
	case strings.HasSuffix(durationStr, "m"):
		unit = time.Minute
	case strings.HasSuffix(durationStr, "h"):
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}

	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid duration: %s", durationStr)
	}

	return limiter.Rate{
		Period: time.Duration(n) * unit,
		Limit:  int64(limit),
	}, nil
}

func limitReached(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, apperr.Body(&apperr.Error{
		Code:    "RATE_LIMITED",
		Message: "Too many requests, please retry later",
	}))
}

func newLimiter(rdb *redis.Client, rateStr, routeID string) (*limiter.Limiter, error) {
	rate, err := ParseCustomRate(rateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing rate for route %s: %w", routeID, err)
	}
	store, err := createStore(rdb, routeID, rate.Period)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

func clientKey(c *gin.Context) string {
	return c.ClientIP()
}

// NewRateLimiter limits requests per client IP on routeID. A bad rate or an
// unreachable store disables the limiter rather than the route.
func NewRateLimiter(rdb *redis.Client, rateStr, routeID string) gin.HandlerFunc {
	l, err := newLimiter(rdb, rateStr, routeID)
	if err != nil {
		logger.ErrorLogger.Errorf("Rate limiting disabled for route %s: %v", routeID, err)
		return func(c *gin.Context) { c.Next() }
	}

	return ginmiddleware.NewMiddleware(l,
		ginmiddleware.WithKeyGetter(clientKey),
		ginmiddleware.WithLimitReachedHandler(limitReached),
	)
}

// CombinedRateLimiter applies every rate in rateStrings to the same route;
// the request is rejected as soon as one of them is exhausted.
func CombinedRateLimiter(rdb *redis.Client, routeID string, rateStrings ...string) gin.HandlerFunc {
	limiters := make([]*limiter.Limiter, 0, len(rateStrings))
	for i, rateStr := range rateStrings {
		l, err := newLimiter(rdb, rateStr, fmt.Sprintf("%s_%d", routeID, i))
		if err != nil {
			logger.ErrorLogger.Errorf("Skipping rate %q for route %s: %v", rateStr, routeID, err)
			continue
		}
		limiters = append(limiters, l)
	}

	return func(c *gin.Context) {
		key := clientKey(c)
		for _, l := range limiters {
			lc, err := l.Get(c, key)
			if err != nil {
				logger.ErrorLogger.Errorf("Rate limit lookup failed for route %s: %v", routeID, err)
				continue
			}
			if lc.Reached {
				c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
				c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
				limitReached(c)
				return
			}
		}
		c.Next()
	}
}
