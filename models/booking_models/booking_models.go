package booking_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/property-booking/config/db"
	"github.com/joy095/property-booking/logger"
)

// Kind discriminates the two ways a booking comes into existence.
type Kind string

const (
	// KindAssignment binds a property to a requested date range.
	KindAssignment Kind = "assignment"
	// KindDirect is booked against a property without a booking request.
	KindDirect Kind = "direct"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusPaid      = "paid"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrDuplicateAssignment = errors.New("booking date already has an assignment")
	ErrOverlap             = errors.New("property is already booked for an overlapping interval")
	ErrReferenceNotFound   = errors.New("referenced property or booking date does not exist")
)

// Booking is the single booking entity. Assignments carry BookingDateID;
// direct bookings do not.
type Booking struct {
	ID             uuid.UUID  `json:"id"`
	Kind           Kind       `json:"kind"`
	Status         string     `json:"status"`
	PropertyID     uuid.UUID  `json:"property_id"`
	BookingDateID  *uuid.UUID `json:"booking_date_id,omitempty"`
	ContractorID   *uuid.UUID `json:"contractor_id"`
	LandlordID     *uuid.UUID `json:"landlord_id"`
	StartDate      Date       `json:"start_date"`
	EndDate        Date       `json:"end_date"`
	PropertyTitle  *string    `json:"property_title"`
	ContractorName *string    `json:"contractor_name"`
	LandlordName   *string    `json:"landlord_name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewBooking creates a pending booking of the given kind.
func NewBooking(kind Kind, propertyID uuid.UUID, r DateRange) (*Booking, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	now := time.Now()
	return &Booking{
		ID:         id,
		Kind:       kind,
		Status:     BookingStatusPending,
		PropertyID: propertyID,
		StartDate:  r.Start,
		EndDate:    r.End,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Range returns the booked interval.
func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// Active reports whether the booking still holds its interval.
func (b *Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}

// IsValidAdminStatus reports whether status can be set by an admin.
func IsValidAdminStatus(status string) bool {
	return status == BookingStatusConfirmed || status == BookingStatusCancelled
}

// Store persists bookings and booking requests.
type Store struct {
	db db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{db: pool}
}

const bookingColumns = `
	id, kind, status, property_id, booking_date_id, contractor_id, landlord_id,
	start_date, end_date, property_title, contractor_name, landlord_name, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	b := &Booking{}
	var kind string
	var start, end time.Time
	err := row.Scan(
		&b.ID, &kind, &b.Status, &b.PropertyID, &b.BookingDateID, &b.ContractorID, &b.LandlordID,
		&start, &end, &b.PropertyTitle, &b.ContractorName, &b.LandlordName, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Kind = Kind(kind)
	b.StartDate = NewDate(start)
	b.EndDate = NewDate(end)
	return b, nil
}

// GetBooking fetches a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	logger.InfoLogger.Infof("Attempting to fetch booking with ID: %s", id)

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Booking with ID %s not found", id)
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	return b, nil
}

// FindBookingByDateID returns the assignment for a requested date range,
// or ErrBookingNotFound.
func (s *Store) FindBookingByDateID(ctx context.Context, dateID uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_date_id = $1`
	b, err := scanBooking(s.db.QueryRow(ctx, query, dateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("database error fetching assignment for booking date: %w", err)
	}
	return b, nil
}

// ListActiveBookingsForProperty returns every non-cancelled booking for a
// property ordered by start date.
func (s *Store) ListActiveBookingsForProperty(ctx context.Context, propertyID uuid.UUID) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE property_id = $1 AND status <> 'cancelled'
		ORDER BY start_date`

	rows, err := s.db.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for property: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// CreateBooking inserts b and, in the same transaction, marks the property
// unavailable and the requested date range confirmed. The unique and
// exclusion constraints on bookings are the final guard against double
// assignment.
func (s *Store) CreateBooking(ctx context.Context, b *Booking) error {
	logger.InfoLogger.Infof("Attempting to create %s booking %s for property %s (%s)", b.Kind, b.ID, b.PropertyID, b.Range())

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO bookings (
				id, kind, status, property_id, booking_date_id, contractor_id, landlord_id,
				start_date, end_date, property_title, contractor_name, landlord_name, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

		if _, err := tx.Exec(ctx, insert,
			b.ID, string(b.Kind), b.Status, b.PropertyID, b.BookingDateID, b.ContractorID, b.LandlordID,
			b.StartDate.Time, b.EndDate.Time, b.PropertyTitle, b.ContractorName, b.LandlordName, b.CreatedAt, b.UpdatedAt,
		); err != nil {
			return mapBookingWriteError(err)
		}

		tag, err := tx.Exec(ctx, `UPDATE properties SET is_available = FALSE, updated_at = NOW() WHERE id = $1`, b.PropertyID)
		if err != nil {
			return fmt.Errorf("failed to mark property unavailable: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrReferenceNotFound
		}

		if b.BookingDateID != nil {
			tag, err := tx.Exec(ctx, `UPDATE booking_dates SET status = 'confirmed', updated_at = NOW() WHERE id = $1`, *b.BookingDateID)
			if err != nil {
				return fmt.Errorf("failed to confirm booking date: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrReferenceNotFound
			}
		}
		return nil
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create booking %s: %v", b.ID, err)
		return err
	}

	logger.InfoLogger.Infof("Booking %s created successfully", b.ID)
	return nil
}

func mapBookingWriteError(err error) error {
	code, constraint, ok := db.ConstraintError(err)
	if !ok {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	switch {
	case code == db.CodeUniqueViolation && constraint == "bookings_booking_date_id_key":
		return ErrDuplicateAssignment
	case code == db.CodeExclusionViolation:
		return ErrOverlap
	case code == db.CodeForeignKeyViolation:
		return ErrReferenceNotFound
	default:
		return fmt.Errorf("failed to insert booking: %w", err)
	}
}

// UpdateBookingStatus writes status and returns the updated booking.
func (s *Store) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (*Booking, error) {
	logger.InfoLogger.Infof("Updating booking %s status to %s", id, status)

	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns

	b, err := scanBooking(s.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		// Re-activating a cancelled booking can collide with a newer one.
		if code, _, ok := db.ConstraintError(err); ok && code == db.CodeExclusionViolation {
			return nil, ErrOverlap
		}
		logger.ErrorLogger.Errorf("Failed to update booking %s status: %v", id, err)
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s status updated to %s", id, status)
	return b, nil
}
