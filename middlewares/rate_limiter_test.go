package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomRate(t *testing.T) {
	tests := []struct {
		in     string
		limit  int64
		period time.Duration
		ok     bool
	}{
		{"10-2m", 10, 2 * time.Minute, true},
		{"20-10s", 20, 10 * time.Second, true},
		{"5-1h", 5, time.Hour, true},
		{"5-1d", 0, 0, false},
		{"x-1m", 0, 0, false},
		{"0-1m", 0, 0, false},
		{"10", 0, 0, false},
		{"10-m", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rate, err := ParseCustomRate(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, rate.Limit)
			assert.Equal(t, tt.period, rate.Period)
		})
	}
}

func hits(r http.Handler, n int) []int {
	codes := make([]int, n)
	for i := range codes {
		req, _ := http.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	return codes
}

func newRouter(mw gin.HandlerFunc, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/limited", mw, func(c *gin.Context) {
		*calls++
		c.Status(http.StatusOK)
	})
	return r
}

func TestNewRateLimiterInMemory(t *testing.T) {
	calls := 0
	r := newRouter(NewRateLimiter(nil, "2-1m", "memory_test"), &calls)

	assert.Equal(t, []int{200, 200, 429}, hits(r, 3))
	assert.Equal(t, 2, calls)
}

func TestNewRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	r := newRouter(NewRateLimiter(rdb, "1-1m", "redis_test"), &calls)

	assert.Equal(t, []int{200, 429}, hits(r, 2))
	assert.Equal(t, 1, calls)
}

func TestCombinedRateLimiterRunsHandlerOnce(t *testing.T) {
	calls := 0
	r := newRouter(CombinedRateLimiter(nil, "combined_test", "3-1m", "2-1h"), &calls)

	assert.Equal(t, []int{200, 200, 429}, hits(r, 3))
	assert.Equal(t, 2, calls)
}

func TestInvalidRateDisablesLimiter(t *testing.T) {
	calls := 0
	r := newRouter(NewRateLimiter(nil, "bogus", "invalid_test"), &calls)

	assert.Equal(t, []int{200, 200, 200}, hits(r, 3))
}
