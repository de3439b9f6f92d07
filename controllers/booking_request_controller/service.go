package booking_request_controller

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/identity_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/utils/apperr"
)

// Store is the persistence the intake flow needs.
type Store interface {
	CreateBookingRequest(ctx context.Context, contractor *identity_models.Contractor, req *booking_models.BookingRequest) error
	GetBookingRequest(ctx context.Context, id uuid.UUID) (*booking_models.BookingRequest, error)
}

// CreateInput is a validated intake submission.
type CreateInput struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       *string
	Company     *string
	Password    string
	TeamSize    int
	BudgetCents *int64
	Notes       *string
	Ranges      []booking_models.DateRange
}

// Created is what intake returns to the requester.
type Created struct {
	Contractor     *identity_models.Contractor    `json:"contractor"`
	BookingRequest *booking_models.BookingRequest `json:"booking_request"`
}

type Service struct {
	store    Store
	notifier notify.Publisher
}

func NewService(store Store, notifier notify.Publisher) *Service {
	return &Service{store: store, notifier: notifier}
}

// Create provisions the contractor and stores the request with every date
// range, then announces each range.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	contractor, err := identity_models.NewContractor(in.Email, in.FirstName, in.LastName, in.Phone, in.Company, in.Password)
	if err != nil {
		return nil, apperr.Upstream("Failed to prepare contractor", err)
	}

	req, err := booking_models.NewBookingRequest(contractor.ID, in.TeamSize, in.BudgetCents, in.Notes, in.Ranges)
	if err != nil {
		return nil, apperr.Upstream("Failed to prepare booking request", err)
	}

	if err := s.store.CreateBookingRequest(ctx, contractor, req); err != nil {
		if errors.Is(err, identity_models.ErrEmailTaken) {
			return nil, apperr.Auth("EMAIL_ALREADY_REGISTERED", "An account with this email already exists")
		}
		return nil, apperr.Upstream("Failed to create booking request", err)
	}

	for _, d := range req.Dates {
		s.notifier.Publish(notify.NewEvent(notify.EventBookingDateCreated, map[string]interface{}{
			"booking_request_id": req.ID.String(),
			"booking_date_id":    d.ID.String(),
			"contractor_id":      contractor.ID.String(),
			"email":              contractor.Email,
			"name":               contractor.FullName(),
			"team_size":          req.TeamSize,
			"start_date":         d.StartDate.String(),
			"end_date":           d.EndDate.String(),
		}))
	}

	logger.InfoLogger.Infof("Booking request %s accepted for contractor %s with %d date ranges", req.ID, contractor.ID, len(req.Dates))
	return &Created{Contractor: contractor, BookingRequest: req}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*booking_models.BookingRequest, error) {
	req, err := s.store.GetBookingRequest(ctx, id)
	if err != nil {
		if errors.Is(err, booking_models.ErrBookingRequestNotFound) {
			return nil, apperr.NotFound("BOOKING_REQUEST_NOT_FOUND", "Booking request not found")
		}
		return nil, apperr.Upstream("Failed to fetch booking request", err)
	}
	return req, nil
}
