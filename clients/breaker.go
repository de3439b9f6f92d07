package clients

import (
	"time"

	"github.com/joy095/property-booking/logger"
	"github.com/sony/gobreaker"
)

// newBreaker opens after three consecutive failures and tries again after
// the timeout.
func newBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WarnLogger.Warnf("Circuit breaker '%s' changed from '%s' to '%s'", name, from, to)
		},
	})
}
