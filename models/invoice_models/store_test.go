package invoice_models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceCols = []string{
	"id", "booking_id", "provider", "session_id", "checkout_url", "amount_cents", "currency", "status",
	"created_at", "updated_at", "paid_at",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func invoiceRow(inv *Invoice, status string, paidAt *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(invoiceCols).AddRow(
		inv.ID, inv.BookingID, inv.Provider, inv.SessionID, inv.CheckoutURL, inv.AmountCents, inv.Currency, status,
		inv.CreatedAt, inv.UpdatedAt, paidAt,
	)
}

func testInvoice(t *testing.T, sessionID string) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), "stripe", sessionID, "https://checkout.example/"+sessionID, 45000, "usd")
	require.NoError(t, err)
	return inv
}

func TestUpsertInvoice(t *testing.T) {
	t.Run("RecordsSession", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_1")

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO invoices").
			WithArgs(anyArgs(11)...).
			WillReturnRows(invoiceRow(inv, InvoiceStatusUnpaid, nil))
		mock.ExpectExec("INSERT INTO payment_sessions").
			WithArgs("cs_test_1", inv.ID, "stripe", inv.CheckoutURL).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		saved, err := store.UpsertInvoice(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, inv.ID, saved.ID)
		assert.Equal(t, 450.0, saved.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO invoices").
			WithArgs(anyArgs(11)...).
			WillReturnRows(pgxmock.NewRows(invoiceCols))
		mock.ExpectRollback()

		_, err := store.UpsertInvoice(context.Background(), testInvoice(t, "cs_test_2"))
		assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SessionWriteFailureRollsBack", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_3")

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO invoices").
			WithArgs(anyArgs(11)...).
			WillReturnRows(invoiceRow(inv, InvoiceStatusUnpaid, nil))
		mock.ExpectExec("INSERT INTO payment_sessions").
			WithArgs(anyArgs(4)...).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := store.UpsertInvoice(context.Background(), inv)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvoiceAlreadyPaid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordWebhookEvent(t *testing.T) {
	store, mock := newMockStore(t)
	evt := &WebhookEvent{EventID: "evt_1", Provider: "stripe", EventType: "checkout.session.completed", SessionID: "cs_1"}

	mock.ExpectExec("INSERT INTO webhook_events").WithArgs(anyArgs(5)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO webhook_events").WithArgs(anyArgs(5)...).WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := store.RecordWebhookEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = store.RecordWebhookEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.False(t, first)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectSettle(mock pgxmock.PgxPoolIface, inv *Invoice, sessionID string, bookingID *uuid.UUID, paidBefore *time.Time, bookingRows int64) {
	paidAt := time.Now()
	if paidBefore != nil {
		paidAt = *paidBefore
	}
	mock.ExpectBegin()
	mock.ExpectQuery("FROM payment_sessions WHERE session_id").
		WithArgs(sessionID, bookingID).
		WillReturnRows(invoiceRow(inv, statusFor(paidBefore), paidBefore))
	mock.ExpectQuery("UPDATE invoices").
		WithArgs(inv.ID).
		WillReturnRows(invoiceRow(inv, InvoiceStatusPaid, &paidAt))
	mock.ExpectExec("UPDATE bookings SET status = 'paid'").
		WithArgs(inv.BookingID).
		WillReturnResult(pgxmock.NewResult("UPDATE", bookingRows))
	mock.ExpectCommit()
}

func statusFor(paidAt *time.Time) string {
	if paidAt != nil {
		return InvoiceStatusPaid
	}
	return InvoiceStatusUnpaid
}

func TestMarkPaid(t *testing.T) {
	t.Run("FirstSettlement", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_1")
		expectSettle(mock, inv, "cs_test_1", &inv.BookingID, nil, 1)

		res, err := store.MarkPaid(context.Background(), "cs_test_1", &inv.BookingID)
		require.NoError(t, err)
		assert.True(t, res.FirstSettlement)
		assert.False(t, res.BookingCancelled)
		assert.Equal(t, InvoiceStatusPaid, res.Invoice.Status)
		assert.NotNil(t, res.Invoice.PaidAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReplayIsNotFirst", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_1")
		paidAt := time.Now().Add(-time.Hour)
		expectSettle(mock, inv, "cs_test_1", nil, &paidAt, 1)

		res, err := store.MarkPaid(context.Background(), "cs_test_1", nil)
		require.NoError(t, err)
		assert.False(t, res.FirstSettlement)
		assert.Equal(t, paidAt, *res.Invoice.PaidAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SupersededSession", func(t *testing.T) {
		store, mock := newMockStore(t)
		// The invoice now points at a newer session; the old one still settles it.
		inv := testInvoice(t, "cs_test_newer")
		expectSettle(mock, inv, "cs_test_older", nil, nil, 1)

		res, err := store.MarkPaid(context.Background(), "cs_test_older", nil)
		require.NoError(t, err)
		assert.True(t, res.FirstSettlement)
		assert.Equal(t, inv.ID, res.Invoice.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CancelledBookingKeepsStatus", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_1")
		expectSettle(mock, inv, "cs_test_1", nil, nil, 0)

		res, err := store.MarkPaid(context.Background(), "cs_test_1", nil)
		require.NoError(t, err)
		assert.True(t, res.FirstSettlement)
		assert.True(t, res.BookingCancelled)
		assert.Equal(t, InvoiceStatusPaid, res.Invoice.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownSessionAndBooking", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FROM payment_sessions WHERE session_id").
			WithArgs(anyArgs(2)...).
			WillReturnRows(pgxmock.NewRows(invoiceCols))
		mock.ExpectRollback()

		_, err := store.MarkPaid(context.Background(), "cs_unknown", nil)
		assert.ErrorIs(t, err, ErrInvoiceNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BookingWriteFailureRollsBack", func(t *testing.T) {
		store, mock := newMockStore(t)
		inv := testInvoice(t, "cs_test_1")
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("FROM payment_sessions WHERE session_id").
			WithArgs(anyArgs(2)...).
			WillReturnRows(invoiceRow(inv, InvoiceStatusUnpaid, nil))
		mock.ExpectQuery("UPDATE invoices").
			WithArgs(inv.ID).
			WillReturnRows(invoiceRow(inv, InvoiceStatusPaid, &now))
		mock.ExpectExec("UPDATE bookings").
			WithArgs(inv.BookingID).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		_, err := store.MarkPaid(context.Background(), "cs_test_1", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadlock detected")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
