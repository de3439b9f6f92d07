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
	"github.com/joy095/property-booking/models/identity_models"
)

const (
	DateStatusPending   = "pending"
	DateStatusConfirmed = "confirmed"
)

var ErrBookingRequestNotFound = errors.New("booking request not found")

// BookingRequest is a contractor's request for one or more date ranges.
type BookingRequest struct {
	ID           uuid.UUID     `json:"id"`
	ContractorID uuid.UUID     `json:"contractor_id"`
	TeamSize     int           `json:"team_size"`
	BudgetCents  *int64        `json:"budget_cents"`
	Notes        *string       `json:"notes"`
	Dates        []BookingDate `json:"dates"`
	CreatedAt    time.Time     `json:"created_at"`
}

// BookingDate is one requested date range. Its status moves to confirmed
// when a property is assigned to it.
type BookingDate struct {
	ID               uuid.UUID `json:"id"`
	BookingRequestID uuid.UUID `json:"booking_request_id"`
	StartDate        Date      `json:"start_date"`
	EndDate          Date      `json:"end_date"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewBookingRequest builds a request and its pending date ranges.
func NewBookingRequest(contractorID uuid.UUID, teamSize int, budgetCents *int64, notes *string, ranges []DateRange) (*BookingRequest, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking request: %w", err)
	}
	now := time.Now()
	req := &BookingRequest{
		ID:           id,
		ContractorID: contractorID,
		TeamSize:     teamSize,
		BudgetCents:  budgetCents,
		Notes:        notes,
		Dates:        make([]BookingDate, 0, len(ranges)),
		CreatedAt:    now,
	}
	for _, r := range ranges {
		dateID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate UUID for booking date: %w", err)
		}
		req.Dates = append(req.Dates, BookingDate{
			ID:               dateID,
			BookingRequestID: id,
			StartDate:        r.Start,
			EndDate:          r.End,
			Status:           DateStatusPending,
			CreatedAt:        now,
		})
	}
	return req, nil
}

// CreateBookingRequest provisions the contractor and stores the request
// with all of its date ranges in one transaction. Returns
// identity_models.ErrEmailTaken when the email belongs to any contractor or
// landlord.
func (s *Store) CreateBookingRequest(ctx context.Context, contractor *identity_models.Contractor, req *BookingRequest) error {
	logger.InfoLogger.Infof("Attempting to create booking request %s with %d date ranges", req.ID, len(req.Dates))

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		taken, err := identity_models.EmailRegistered(ctx, tx, contractor.Email)
		if err != nil {
			return err
		}
		if taken {
			return identity_models.ErrEmailTaken
		}

		if err := identity_models.InsertContractor(ctx, tx, contractor); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO booking_requests (id, contractor_id, team_size, budget_cents, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			req.ID, req.ContractorID, req.TeamSize, req.BudgetCents, req.Notes, req.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert booking request: %w", err)
		}

		for _, d := range req.Dates {
			if _, err := tx.Exec(ctx, `
				INSERT INTO booking_dates (id, booking_request_id, start_date, end_date, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $6)`,
				d.ID, d.BookingRequestID, d.StartDate.Time, d.EndDate.Time, d.Status, d.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert booking date %s: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create booking request %s: %v", req.ID, err)
		return err
	}

	logger.InfoLogger.Infof("Booking request %s created successfully", req.ID)
	return nil
}

// GetBookingRequest fetches a request with its date ranges.
func (s *Store) GetBookingRequest(ctx context.Context, id uuid.UUID) (*BookingRequest, error) {
	req := &BookingRequest{}
	err := s.db.QueryRow(ctx, `
		SELECT id, contractor_id, team_size, budget_cents, notes, created_at
		FROM booking_requests
		WHERE id = $1`, id,
	).Scan(&req.ID, &req.ContractorID, &req.TeamSize, &req.BudgetCents, &req.Notes, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingRequestNotFound
		}
		return nil, fmt.Errorf("database error fetching booking request: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, booking_request_id, start_date, end_date, status, created_at
		FROM booking_dates
		WHERE booking_request_id = $1
		ORDER BY start_date`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking dates: %w", err)
	}
	defer rows.Close()

	req.Dates = []BookingDate{}
	for rows.Next() {
		var d BookingDate
		var start, end time.Time
		if err := rows.Scan(&d.ID, &d.BookingRequestID, &start, &end, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking date: %w", err)
		}
		d.StartDate = NewDate(start)
		d.EndDate = NewDate(end)
		req.Dates = append(req.Dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking dates: %w", err)
	}
	return req, nil
}
