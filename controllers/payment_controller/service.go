package payment_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/property-booking/clients"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/invoice_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/utils/apperr"
)

type BookingStore interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*booking_models.Booking, error)
}

type PropertyStore interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*property_models.Property, error)
}

type InvoiceStore interface {
	UpsertInvoice(ctx context.Context, inv *invoice_models.Invoice) (*invoice_models.Invoice, error)
	RecordWebhookEvent(ctx context.Context, evt *invoice_models.WebhookEvent) (bool, error)
	MarkPaid(ctx context.Context, sessionID string, bookingID *uuid.UUID) (*invoice_models.Settlement, error)
}

// Options configures session creation.
type Options struct {
	SuccessURL      string
	CancelURL       string
	DefaultCurrency string
	Timeout         time.Duration
}

// SessionResult is returned to the caller of create-session.
type SessionResult struct {
	SessionID string                  `json:"session_id"`
	URL       string                  `json:"url"`
	Invoice   *invoice_models.Invoice `json:"invoice"`
}

type Service struct {
	bookings   BookingStore
	properties PropertyStore
	invoices   InvoiceStore
	gateway    clients.PaymentGateway
	webhooks   map[string]clients.PaymentGateway
	notifier   notify.Publisher
	opts       Options
}

// NewService opens sessions with gateway. Callbacks are accepted from
// gateway and from any extra gateways, keyed by provider name.
func NewService(bookings BookingStore, properties PropertyStore, invoices InvoiceStore, gateway clients.PaymentGateway, notifier notify.Publisher, opts Options, extra ...clients.PaymentGateway) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	webhooks := map[string]clients.PaymentGateway{gateway.Provider(): gateway}
	for _, g := range extra {
		webhooks[g.Provider()] = g
	}
	return &Service{
		bookings:   bookings,
		properties: properties,
		invoices:   invoices,
		gateway:    gateway,
		webhooks:   webhooks,
		notifier:   notifier,
		opts:       opts,
	}
}

// Providers lists the providers whose callbacks are accepted.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.webhooks))
	for p := range s.webhooks {
		out = append(out, p)
	}
	return out
}

// CreateSession prices the booking, opens a hosted checkout and records the
// invoice against it.
func (s *Service) CreateSession(ctx context.Context, bookingID uuid.UUID) (*SessionResult, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, booking_models.ErrBookingNotFound) {
			return nil, apperr.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, apperr.Upstream("Failed to fetch booking", err)
	}

	switch booking.Status {
	case booking_models.BookingStatusPaid:
		return nil, apperr.Conflict("ALREADY_PAID", "Booking is already paid", nil)
	case booking_models.BookingStatusCancelled:
		return nil, apperr.Conflict("BOOKING_CANCELLED", "Booking is cancelled", nil)
	}

	property, err := s.properties.GetProperty(ctx, booking.PropertyID)
	if err != nil {
		if errors.Is(err, property_models.ErrPropertyNotFound) {
			return nil, apperr.NotFound("PROPERTY_NOT_FOUND", "Property not found")
		}
		return nil, apperr.Upstream("Failed to fetch property", err)
	}

	amount := invoice_models.ComputeAmount(property.UnitPriceCents, booking.Range())
	currency := property.Currency
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	session, err := s.gateway.CreateSession(gwCtx, clients.SessionRequest{
		BookingID:   booking.ID,
		AmountCents: amount,
		Currency:    currency,
		Description: fmt.Sprintf("%s, %s (%d days)", property.Title, booking.Range(), booking.Range().BillableDays()),
		SuccessURL:  s.opts.SuccessURL,
		CancelURL:   s.opts.CancelURL,
	})
	if err != nil {
		return nil, apperr.BadGateway("PAYMENT_PROVIDER_ERROR", "Payment provider request failed", err)
	}

	inv, err := invoice_models.NewInvoice(booking.ID, session.Provider, session.ID, session.URL, amount, currency)
	if err != nil {
		return nil, apperr.Upstream("Failed to prepare invoice", err)
	}
	saved, err := s.invoices.UpsertInvoice(ctx, inv)
	if err != nil {
		if errors.Is(err, invoice_models.ErrInvoiceAlreadyPaid) {
			return nil, apperr.Conflict("ALREADY_PAID", "Booking is already paid", nil)
		}
		return nil, apperr.Upstream("Failed to save invoice", err)
	}

	s.notifier.Publish(notify.NewEvent(notify.EventPaymentSessionCreated, map[string]interface{}{
		"booking_id":   booking.ID.String(),
		"invoice_id":   saved.ID.String(),
		"provider":     session.Provider,
		"session_id":   session.ID,
		"amount_cents": amount,
		"currency":     currency,
	}))

	logger.InfoLogger.Infof("Payment session %s opened for booking %s: %d %s", session.ID, booking.ID, amount, currency)
	return &SessionResult{SessionID: session.ID, URL: session.URL, Invoice: saved}, nil
}

// HandleWebhook authenticates and applies one processor callback. Nothing
// is written unless the signature verifies. payment.completed is published
// once per invoice, by the delivery that settled it, so a redelivery after
// a failed settlement still notifies.
func (s *Service) HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error {
	gw, ok := s.webhooks[provider]
	if !ok {
		return apperr.NotFound("PROVIDER_NOT_CONFIGURED", "Payment provider is not configured")
	}

	evt, err := gw.ParseWebhook(payload, header)
	if err != nil {
		if errors.Is(err, clients.ErrInvalidSignature) {
			logger.WarnLogger.Warnf("Rejected %s webhook: %v", provider, err)
			return apperr.Auth("INVALID_SIGNATURE", "Invalid webhook signature")
		}
		logger.WarnLogger.Warnf("Rejected %s webhook payload: %v", provider, err)
		return apperr.Validation("INVALID_PAYLOAD", "Webhook payload could not be parsed", nil)
	}

	first, err := s.invoices.RecordWebhookEvent(ctx, &invoice_models.WebhookEvent{
		EventID:   evt.ID,
		Provider:  evt.Provider,
		EventType: evt.RawType,
		SessionID: evt.SessionID,
		Payload:   evt.Payload,
	})
	if err != nil {
		return apperr.Upstream("Failed to record webhook event", err)
	}
	if !first {
		logger.InfoLogger.Infof("Webhook event %s already received, replaying", evt.ID)
	}

	switch evt.Type {
	case clients.EventSessionCompleted:
		var bookingID *uuid.UUID
		if id, err := uuid.Parse(evt.BookingID); err == nil {
			bookingID = &id
		}
		settled, err := s.invoices.MarkPaid(ctx, evt.SessionID, bookingID)
		if err != nil {
			if errors.Is(err, invoice_models.ErrInvoiceNotFound) {
				logger.WarnLogger.Warnf("Completed %s session %s matches no invoice (booking %q)", provider, evt.SessionID, evt.BookingID)
				return nil
			}
			return apperr.Upstream("Failed to settle payment", err)
		}
		if !settled.FirstSettlement {
			return nil
		}
		inv := settled.Invoice
		data := map[string]interface{}{
			"booking_id":   inv.BookingID.String(),
			"invoice_id":   inv.ID.String(),
			"provider":     evt.Provider,
			"session_id":   evt.SessionID,
			"amount_cents": inv.AmountCents,
			"currency":     inv.Currency,
		}
		s.notifier.Publish(notify.NewEvent(notify.EventPaymentCompleted, data))
		if settled.BookingCancelled {
			s.notifier.Publish(notify.NewEvent(notify.EventPaymentNeedsReview, data))
		}

	case clients.EventSessionExpired:
		logger.InfoLogger.Infof("%s session %s for booking %q expired", provider, evt.SessionID, evt.BookingID)
		if first {
			s.notifier.Publish(notify.NewEvent(notify.EventPaymentExpired, map[string]interface{}{
				"booking_id": evt.BookingID,
				"provider":   evt.Provider,
				"session_id": evt.SessionID,
			}))
		}

	default:
		logger.InfoLogger.Infof("Ignoring %s webhook event %s of type %s", provider, evt.ID, evt.RawType)
	}
	return nil
}
