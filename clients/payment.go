package clients

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

const (
	ProviderStripe   = "stripe"
	ProviderRazorpay = "razorpay"
)

var (
	// ErrInvalidSignature means a callback could not be authenticated and
	// its payload must not be trusted.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means the callback was authentic but its payload
	// could not be understood.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// EventType is the provider-neutral meaning of a callback.
type EventType string

const (
	EventSessionCompleted EventType = "session.completed"
	EventSessionExpired   EventType = "session.expired"
	EventIgnored          EventType = "ignored"
)

// SessionRequest describes the hosted checkout to open for a booking.
type SessionRequest struct {
	BookingID     uuid.UUID
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is an opened hosted checkout.
type Session struct {
	ID       string
	URL      string
	Provider string
}

// WebhookEvent is a verified processor callback.
type WebhookEvent struct {
	ID        string
	Provider  string
	RawType   string
	Type      EventType
	SessionID string
	BookingID string
	Payload   []byte
}

// PaymentGateway opens payment sessions and authenticates the processor's
// callbacks.
type PaymentGateway interface {
	Provider() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseWebhook verifies the signature carried in header before decoding
	// payload. Verification failures wrap ErrInvalidSignature.
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
}
