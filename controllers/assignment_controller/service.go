package assignment_controller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/property-booking/logger"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/identity_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/lock"
)

// BookingStore is the booking persistence used by assignment.
type BookingStore interface {
	FindBookingByDateID(ctx context.Context, dateID uuid.UUID) (*booking_models.Booking, error)
	ListActiveBookingsForProperty(ctx context.Context, propertyID uuid.UUID) ([]booking_models.Booking, error)
	CreateBooking(ctx context.Context, b *booking_models.Booking) error
}

type PropertyStore interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*property_models.Property, error)
}

// IdentityStore resolves the optional display references.
type IdentityStore interface {
	ContractorIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
	LandlordIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

// AssignInput is a validated assignment or direct booking. BookingDateID is
// nil for direct bookings.
type AssignInput struct {
	BookingDateID   *uuid.UUID
	PropertyID      uuid.UUID
	Range           booking_models.DateRange
	ContractorEmail string
	LandlordEmail   string
	ContractorName  *string
	LandlordName    *string
	PropertyTitle   *string
}

type Service struct {
	bookings   BookingStore
	properties PropertyStore
	identities IdentityStore
	locker     lock.Locker
	notifier   notify.Publisher
	lockWait   time.Duration
}

func NewService(bookings BookingStore, properties PropertyStore, identities IdentityStore, locker lock.Locker, notifier notify.Publisher) *Service {
	return &Service{
		bookings:   bookings,
		properties: properties,
		identities: identities,
		locker:     locker,
		notifier:   notifier,
		lockWait:   5 * time.Second,
	}
}

func propertyLockKey(id uuid.UUID) string {
	return "property:" + id.String()
}

// Assign binds a property to a requested date range. The checks and the
// insert run under a per-property lock; the unique and exclusion
// constraints catch anything the lock misses.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*booking_models.Booking, error) {
	kind := booking_models.KindDirect
	if in.BookingDateID != nil {
		kind = booking_models.KindAssignment
	}
	logger.InfoLogger.Infof("Attempting %s booking of property %s for %s", kind, in.PropertyID, in.Range)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Acquire(lockCtx, propertyLockKey(in.PropertyID))
	cancel()
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperr.Conflict("PROPERTY_BUSY", "Another booking for this property is in progress, please retry", nil)
		}
		return nil, apperr.Upstream("Failed to lock property", err)
	}
	defer release()

	if in.BookingDateID != nil {
		existing, err := s.bookings.FindBookingByDateID(ctx, *in.BookingDateID)
		switch {
		case err == nil:
			return nil, alreadyExists(existing.ID)
		case !errors.Is(err, booking_models.ErrBookingNotFound):
			return nil, apperr.Upstream("Failed to check existing assignment", err)
		}
	}

	if conflict, err := s.findConflict(ctx, in.PropertyID, in.Range); err != nil {
		return nil, apperr.Upstream("Failed to check property availability", err)
	} else if conflict != nil {
		return nil, dateConflict(conflict)
	}

	b, err := booking_models.NewBooking(kind, in.PropertyID, in.Range)
	if err != nil {
		return nil, apperr.Upstream("Failed to prepare booking", err)
	}
	b.BookingDateID = in.BookingDateID
	b.ContractorName = in.ContractorName
	b.LandlordName = in.LandlordName
	b.PropertyTitle = in.PropertyTitle
	s.resolveReferences(ctx, b, in)

	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return nil, s.mapCreateError(ctx, err, in)
	}

	eventType := notify.EventPropertyAssigned
	if kind == booking_models.KindDirect {
		eventType = notify.EventBookingCreated
	}
	s.notifier.Publish(notify.NewEvent(eventType, bookingEventData(b)))

	logger.InfoLogger.Infof("Property %s booked as %s for %s (booking %s)", b.PropertyID, b.Kind, b.Range(), b.ID)
	return b, nil
}

// findConflict returns the first active booking overlapping r.
func (s *Service) findConflict(ctx context.Context, propertyID uuid.UUID, r booking_models.DateRange) (*booking_models.Booking, error) {
	active, err := s.bookings.ListActiveBookingsForProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].Range().Overlaps(r) {
			return &active[i], nil
		}
	}
	return nil, nil
}

// resolveReferences fills the optional identity and title fields. Misses
// leave them null.
func (s *Service) resolveReferences(ctx context.Context, b *booking_models.Booking, in AssignInput) {
	if in.ContractorEmail != "" {
		if id, err := s.identities.ContractorIDByEmail(ctx, in.ContractorEmail); err == nil {
			b.ContractorID = &id
		} else if !errors.Is(err, identity_models.ErrIdentityNotFound) {
			logger.WarnLogger.Warnf("Contractor lookup for %s failed: %v", in.ContractorEmail, err)
		}
	}
	if in.LandlordEmail != "" {
		if id, err := s.identities.LandlordIDByEmail(ctx, in.LandlordEmail); err == nil {
			b.LandlordID = &id
		} else if !errors.Is(err, identity_models.ErrIdentityNotFound) {
			logger.WarnLogger.Warnf("Landlord lookup for %s failed: %v", in.LandlordEmail, err)
		}
	}
	if b.PropertyTitle == nil {
		if p, err := s.properties.GetProperty(ctx, in.PropertyID); err == nil {
			b.PropertyTitle = &p.Title
			if b.LandlordID == nil {
				b.LandlordID = p.LandlordID
			}
		}
	}
}

func (s *Service) mapCreateError(ctx context.Context, err error, in AssignInput) error {
	switch {
	case errors.Is(err, booking_models.ErrDuplicateAssignment):
		var id uuid.UUID
		if existing, findErr := s.bookings.FindBookingByDateID(ctx, *in.BookingDateID); findErr == nil {
			id = existing.ID
		}
		return alreadyExists(id)
	case errors.Is(err, booking_models.ErrOverlap):
		if conflict, findErr := s.findConflict(ctx, in.PropertyID, in.Range); findErr == nil && conflict != nil {
			return dateConflict(conflict)
		}
		return apperr.Conflict("DATE_CONFLICT", "Property is already booked for an overlapping interval", nil)
	case errors.Is(err, booking_models.ErrReferenceNotFound):
		return apperr.NotFound("REFERENCE_NOT_FOUND", "Property or booking date not found")
	default:
		return apperr.Upstream("Failed to create booking", err)
	}
}

func alreadyExists(bookingID uuid.UUID) *apperr.Error {
	var details interface{}
	if bookingID != uuid.Nil {
		details = map[string]string{"booking_id": bookingID.String()}
	}
	return apperr.Conflict("BOOKING_ALREADY_EXISTS", "This booking date already has a property assigned", details)
}

func dateConflict(existing *booking_models.Booking) *apperr.Error {
	return apperr.Conflict("DATE_CONFLICT", "Property is already booked from "+existing.Range().String(), map[string]string{
		"start_date": existing.StartDate.String(),
		"end_date":   existing.EndDate.String(),
		"booking_id": existing.ID.String(),
	})
}

func bookingEventData(b *booking_models.Booking) map[string]interface{} {
	data := map[string]interface{}{
		"booking_id":  b.ID.String(),
		"kind":        string(b.Kind),
		"property_id": b.PropertyID.String(),
		"start_date":  b.StartDate.String(),
		"end_date":    b.EndDate.String(),
		"status":      b.Status,
	}
	if b.BookingDateID != nil {
		data["booking_date_id"] = b.BookingDateID.String()
	}
	if b.ContractorID != nil {
		data["contractor_id"] = b.ContractorID.String()
	}
	if b.LandlordID != nil {
		data["landlord_id"] = b.LandlordID.String()
	}
	if b.PropertyTitle != nil {
		data["property_title"] = *b.PropertyTitle
	}
	return data
}
