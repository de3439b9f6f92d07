// Package notify fans booking lifecycle events out to external systems.
// Delivery is best effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/joy095/property-booking/logger"
)

const (
	EventBookingDateCreated    = "booking_date.created"
	EventPropertyAssigned      = "property.assigned"
	EventBookingCreated        = "booking.created"
	EventPaymentSessionCreated = "payment.session_created"
	EventPaymentCompleted      = "payment.completed"
	EventPaymentExpired        = "payment.expired"
	EventPaymentNeedsReview    = "payment.needs_review"
	EventBookingStatusChanged  = "booking.status_changed"
)

// Event is one notification.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// Sink delivers an event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, evt Event) error
}

// Publisher is what request handlers depend on.
type Publisher interface {
	Publish(evt Event)
}

// Dispatcher sends every published event to all sinks concurrently.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Publisher = (*Dispatcher)(nil)

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Publish returns immediately. Each sink gets its own deadline, detached
// from the caller's request context.
func (d *Dispatcher) Publish(evt Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.WarnLogger.Warnf("Dropping %s notification: dispatcher closed", evt.Type)
		return
	}

	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := s.Send(ctx, evt); err != nil {
				logger.ErrorLogger.Errorf("Failed to deliver %s notification to %s: %v", evt.Type, s.Name(), err)
				return
			}
			logger.InfoLogger.Debugf("Delivered %s notification to %s", evt.Type, s.Name())
		}(s)
	}
}

// Close stops accepting events and waits for in-flight sends or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
