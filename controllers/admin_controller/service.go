package admin_controller

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/invoice_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/utils/apperr"
)

type BookingStore interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*booking_models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (*booking_models.Booking, error)
}

type InvoiceStore interface {
	GetInvoiceByBookingID(ctx context.Context, bookingID uuid.UUID) (*invoice_models.Invoice, error)
}

type PropertyStore interface {
	CreateProperty(ctx context.Context, p *property_models.Property) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*property_models.Property, error)
}

// BookingDetail is a booking with its invoice, if one was opened.
type BookingDetail struct {
	Booking *booking_models.Booking `json:"booking"`
	Invoice *invoice_models.Invoice `json:"invoice"`
}

// PropertyInput describes a property to list.
type PropertyInput struct {
	LandlordID     *uuid.UUID
	Title          string
	Address        *string
	City           *string
	PropertyType   *string
	UnitPriceCents int64
	Currency       string
}

type Service struct {
	bookings   BookingStore
	invoices   InvoiceStore
	properties PropertyStore
	notifier   notify.Publisher
}

func NewService(bookings BookingStore, invoices InvoiceStore, properties PropertyStore, notifier notify.Publisher) *Service {
	return &Service{bookings: bookings, invoices: invoices, properties: properties, notifier: notifier}
}

// SetStatus is the only path that confirms or cancels a booking.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status, actorID string) (*booking_models.Booking, error) {
	if !booking_models.IsValidAdminStatus(status) {
		return nil, apperr.Validation("INVALID_STATUS", "Status must be confirmed or cancelled", nil)
	}

	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, booking_models.ErrBookingNotFound) {
			return nil, apperr.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, apperr.Upstream("Failed to fetch booking", err)
	}
	// A paid booking can still be cancelled; moving it back to confirmed
	// would reopen checkout against a settled invoice.
	if current.Status == booking_models.BookingStatusPaid && status != booking_models.BookingStatusCancelled {
		return nil, apperr.Conflict("BOOKING_PAID", "Booking is already paid", nil)
	}

	updated, err := s.bookings.UpdateBookingStatus(ctx, id, status)
	if err != nil {
		switch {
		case errors.Is(err, booking_models.ErrBookingNotFound):
			return nil, apperr.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		case errors.Is(err, booking_models.ErrOverlap):
			return nil, apperr.Conflict("DATE_CONFLICT", "Another booking now holds this interval", nil)
		default:
			return nil, apperr.Upstream("Failed to update booking status", err)
		}
	}

	s.notifier.Publish(notify.NewEvent(notify.EventBookingStatusChanged, map[string]interface{}{
		"booking_id":      updated.ID.String(),
		"kind":            string(updated.Kind),
		"property_id":     updated.PropertyID.String(),
		"previous_status": current.Status,
		"status":          updated.Status,
		"actor_id":        actorID,
	}))

	logger.InfoLogger.Infof("Booking %s moved from %s to %s by %s", id, current.Status, updated.Status, actorID)
	return updated, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, booking_models.ErrBookingNotFound) {
			return nil, apperr.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, apperr.Upstream("Failed to fetch booking", err)
	}

	inv, err := s.invoices.GetInvoiceByBookingID(ctx, id)
	if err != nil && !errors.Is(err, invoice_models.ErrInvoiceNotFound) {
		return nil, apperr.Upstream("Failed to fetch invoice", err)
	}
	return &BookingDetail{Booking: b, Invoice: inv}, nil
}

func (s *Service) CreateProperty(ctx context.Context, in PropertyInput) (*property_models.Property, error) {
	p, err := property_models.NewProperty(in.Title, in.UnitPriceCents, in.Currency)
	if err != nil {
		return nil, apperr.Upstream("Failed to prepare property", err)
	}
	p.LandlordID = in.LandlordID
	p.Address = in.Address
	p.City = in.City
	p.PropertyType = in.PropertyType

	if err := s.properties.CreateProperty(ctx, p); err != nil {
		if errors.Is(err, property_models.ErrLandlordNotFound) {
			return nil, apperr.NotFound("LANDLORD_NOT_FOUND", "Landlord not found")
		}
		return nil, apperr.Upstream("Failed to create property", err)
	}
	return p, nil
}

// SetAvailability is the manual release for properties whose bookings have
// lapsed; the flag is never reverted automatically.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*property_models.Property, error) {
	p, err := s.properties.SetAvailability(ctx, id, available)
	if err != nil {
		if errors.Is(err, property_models.ErrPropertyNotFound) {
			return nil, apperr.NotFound("PROPERTY_NOT_FOUND", "Property not found")
		}
		return nil, apperr.Upstream("Failed to update property availability", err)
	}
	return p, nil
}
