package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joy095/property-booking/logger"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// checkoutSessions is the part of the Stripe SDK the gateway uses.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens Stripe Checkout sessions and verifies
// Stripe-Signature headers.
type StripeGateway struct {
	sessions      checkoutSessions
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker
}

var _ PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway with its own SDK client so the
// package-level stripe.Key is never touched.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return newStripeGateway(sc.CheckoutSessions, webhookSecret)
}

func newStripeGateway(sessions checkoutSessions, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: webhookSecret,
		breaker:       newBreaker("stripe", 30*time.Second),
	}
}

func (g *StripeGateway) Provider() string { return ProviderStripe }

// CreateSession opens a one-line-item checkout in payment mode. The booking
// id travels in metadata and client_reference_id.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	bookingID := req.BookingID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withSessionPlaceholder(req.SuccessURL)),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(bookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("booking_id", bookingID)

	logger.InfoLogger.Infof("Creating Stripe checkout session for booking %s (%d %s)", bookingID, req.AmountCents, req.Currency)

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}

	s := res.(*stripe.CheckoutSession)
	return &Session{ID: s.ID, URL: s.URL, Provider: ProviderStripe}, nil
}

// withSessionPlaceholder lets the success page look up the session.
func withSessionPlaceholder(successURL string) string {
	if successURL == "" || strings.Contains(successURL, "{CHECKOUT_SESSION_ID}") {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id={CHECKOUT_SESSION_ID}"
}

func (g *StripeGateway) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	sig := header.Get("Stripe-Signature")
	if sig == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	evt := &WebhookEvent{
		ID:       event.ID,
		Provider: ProviderStripe,
		RawType:  string(event.Type),
		Type:     EventIgnored,
		Payload:  payload,
	}

	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		evt.Type = EventSessionCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		evt.Type = EventSessionExpired
	default:
		return evt, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: %s without data", ErrMalformedEvent, event.Type)
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("%w: checkout session id missing", ErrMalformedEvent)
	}

	evt.SessionID = cs.ID
	evt.BookingID = cs.Metadata["booking_id"]
	if evt.BookingID == "" {
		evt.BookingID = cs.ClientReferenceID
	}

	// Delayed methods complete the session before the funds arrive; the
	// async_payment_succeeded event settles those.
	if evt.Type == EventSessionCompleted && !settled(cs.PaymentStatus) {
		logger.InfoLogger.Infof("Stripe session %s completed with payment_status %q, awaiting async payment", cs.ID, cs.PaymentStatus)
		evt.Type = EventIgnored
	}
	return evt, nil
}

func settled(status stripe.CheckoutSessionPaymentStatus) bool {
	return status == stripe.CheckoutSessionPaymentStatusPaid ||
		status == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}
