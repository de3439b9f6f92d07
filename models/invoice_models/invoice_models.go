package invoice_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/property-booking/config/db"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
)

const (
	InvoiceStatusUnpaid = "unpaid"
	InvoiceStatusPaid   = "paid"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid = errors.New("invoice is already paid")
)

// Invoice records the payment owed for a booking. There is at most one
// invoice per booking. SessionID is the latest session opened for it; every
// session ever opened is kept in payment_sessions and can settle it.
type Invoice struct {
	ID          uuid.UUID  `json:"id"`
	BookingID   uuid.UUID  `json:"booking_id"`
	Provider    string     `json:"provider"`
	SessionID   string     `json:"session_id"`
	CheckoutURL *string    `json:"checkout_url"`
	AmountCents int64      `json:"amount_cents"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at"`
}

// ComputeAmount is unit price × ceil(days) in minor units.
func ComputeAmount(unitPriceCents int64, r booking_models.DateRange) int64 {
	return unitPriceCents * r.BillableDays()
}

// NewInvoice creates an unpaid invoice for a freshly opened session.
func NewInvoice(bookingID uuid.UUID, provider, sessionID, checkoutURL string, amountCents int64, currency string) (*Invoice, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for invoice: %w", err)
	}
	now := time.Now()
	inv := &Invoice{
		ID:          id,
		BookingID:   bookingID,
		Provider:    provider,
		SessionID:   sessionID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      InvoiceStatusUnpaid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if checkoutURL != "" {
		inv.CheckoutURL = &checkoutURL
	}
	inv.fillAmount()
	return inv, nil
}

func (inv *Invoice) fillAmount() {
	inv.Amount = float64(inv.AmountCents) / 100
}

// WebhookEvent is the audit record of an inbound processor callback.
type WebhookEvent struct {
	EventID   string
	Provider  string
	EventType string
	SessionID string
	Payload   []byte
}

type Store struct {
	db db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{db: pool}
}

const invoiceColumns = `
	id, booking_id, provider, session_id, checkout_url, amount_cents, currency, status,
	created_at, updated_at, paid_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	err := row.Scan(
		&inv.ID, &inv.BookingID, &inv.Provider, &inv.SessionID, &inv.CheckoutURL, &inv.AmountCents, &inv.Currency, &inv.Status,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	inv.fillAmount()
	return inv, nil
}

// UpsertInvoice stores inv, replacing the current session of an existing
// unpaid invoice for the same booking, and records the session so it can
// still settle the invoice after it is superseded. Returns
// ErrInvoiceAlreadyPaid when the booking's invoice is settled.
func (s *Store) UpsertInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	logger.InfoLogger.Infof("Attempting to save invoice for booking %s, session %s", inv.BookingID, inv.SessionID)

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (booking_id) DO UPDATE SET
			provider     = EXCLUDED.provider,
			session_id   = EXCLUDED.session_id,
			checkout_url = EXCLUDED.checkout_url,
			amount_cents = EXCLUDED.amount_cents,
			currency     = EXCLUDED.currency,
			updated_at   = NOW()
		WHERE invoices.status = 'unpaid'
		RETURNING ` + invoiceColumns

	var saved *Invoice
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		saved, err = scanInvoice(tx.QueryRow(ctx, query,
			inv.ID, inv.BookingID, inv.Provider, inv.SessionID, inv.CheckoutURL, inv.AmountCents, inv.Currency, inv.Status,
			inv.CreatedAt, inv.UpdatedAt, inv.PaidAt,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvoiceAlreadyPaid
			}
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO payment_sessions (session_id, invoice_id, provider, checkout_url)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id) DO NOTHING`,
			saved.SessionID, saved.ID, saved.Provider, saved.CheckoutURL,
		); err != nil {
			return fmt.Errorf("failed to record payment session: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvoiceAlreadyPaid) {
			logger.ErrorLogger.Errorf("Failed to save invoice for booking %s: %v", inv.BookingID, err)
		}
		return nil, err
	}

	logger.InfoLogger.Infof("Invoice %s saved for booking %s", saved.ID, saved.BookingID)
	return saved, nil
}

// GetInvoiceByBookingID fetches the invoice for a booking.
func (s *Store) GetInvoiceByBookingID(ctx context.Context, bookingID uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1`, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("database error fetching invoice: %w", err)
	}
	return inv, nil
}

// RecordWebhookEvent stores the callback and reports whether this is its
// first delivery.
func (s *Store) RecordWebhookEvent(ctx context.Context, evt *WebhookEvent) (bool, error) {
	var payload any
	if len(evt.Payload) > 0 {
		payload = evt.Payload
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO webhook_events (event_id, provider, event_type, session_id, payload)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (event_id) DO NOTHING`,
		evt.EventID, evt.Provider, evt.EventType, evt.SessionID, payload,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record webhook event %s: %v", evt.EventID, err)
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Settlement is the outcome of applying a completed payment.
type Settlement struct {
	Invoice *Invoice
	// FirstSettlement is set only on the call that moved the invoice to paid.
	FirstSettlement bool
	// BookingCancelled is set when the booking was cancelled before the
	// payment arrived. The booking keeps its cancelled status.
	BookingCancelled bool
}

// MarkPaid settles the invoice that sessionID was opened for, falling back
// to the invoice of bookingID when the session is unknown, and moves a
// non-cancelled booking to paid. Replaying it is harmless: paid_at keeps
// the first settlement time.
func (s *Store) MarkPaid(ctx context.Context, sessionID string, bookingID *uuid.UUID) (*Settlement, error) {
	logger.InfoLogger.Infof("Marking invoice for session %s as paid", sessionID)

	res := &Settlement{}
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := scanInvoice(tx.QueryRow(ctx, `
			SELECT `+invoiceColumns+`
			FROM invoices
			WHERE id = COALESCE(
				(SELECT invoice_id FROM payment_sessions WHERE session_id = $1),
				(SELECT id FROM invoices WHERE booking_id = $2))
			FOR UPDATE`, sessionID, bookingID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		res.FirstSettlement = current.PaidAt == nil

		res.Invoice, err = scanInvoice(tx.QueryRow(ctx, `
			UPDATE invoices
			SET status = 'paid', paid_at = COALESCE(paid_at, NOW()), updated_at = NOW()
			WHERE id = $1
			RETURNING `+invoiceColumns, current.ID))
		if err != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE bookings SET status = 'paid', updated_at = NOW()
			WHERE id = $1 AND status <> 'cancelled'`, current.BookingID)
		if err != nil {
			return fmt.Errorf("failed to mark booking paid: %w", err)
		}
		res.BookingCancelled = tag.RowsAffected() == 0
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvoiceNotFound) {
			logger.ErrorLogger.Errorf("Failed to settle session %s: %v", sessionID, err)
		}
		return nil, err
	}

	if res.BookingCancelled {
		logger.WarnLogger.Warnf("Invoice %s paid but booking %s is cancelled", res.Invoice.ID, res.Invoice.BookingID)
	} else {
		logger.InfoLogger.Infof("Invoice %s and booking %s marked paid", res.Invoice.ID, res.Invoice.BookingID)
	}
	return res, nil
}
