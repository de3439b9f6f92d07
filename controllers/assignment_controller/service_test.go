package assignment_controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/property-booking/models/booking_models"
	"github.com/joy095/property-booking/models/identity_models"
	"github.com/joy095/property-booking/models/property_models"
	"github.com/joy095/property-booking/notify"
	"github.com/joy095/property-booking/utils/apperr"
	"github.com/joy095/property-booking/utils/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBookings deliberately has no constraints, so only the service's own
// checks prevent double booking.
type memBookings struct {
	mu        sync.Mutex
	rows      []booking_models.Booking
	createErr error
	listDelay time.Duration
}

func (m *memBookings) FindBookingByDateID(_ context.Context, dateID uuid.UUID) (*booking_models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.BookingDateID != nil && *b.BookingDateID == dateID {
			found := b
			return &found, nil
		}
	}
	return nil, booking_models.ErrBookingNotFound
}

func (m *memBookings) ListActiveBookingsForProperty(_ context.Context, propertyID uuid.UUID) ([]booking_models.Booking, error) {
	if m.listDelay > 0 {
		time.Sleep(m.listDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []booking_models.Booking
	for _, b := range m.rows {
		if b.PropertyID == propertyID && b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookings) CreateBooking(_ context.Context, b *booking_models.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *b)
	return nil
}

func (m *memBookings) seed(t *testing.T, propertyID uuid.UUID, start, end, status string) booking_models.Booking {
	t.Helper()
	b, err := booking_models.NewBooking(booking_models.KindAssignment, propertyID, mustRange(t, start, end))
	require.NoError(t, err)
	dateID := uuid.New()
	b.BookingDateID = &dateID
	b.Status = status
	m.rows = append(m.rows, *b)
	return *b
}

type memProperties map[uuid.UUID]*property_models.Property

func (m memProperties) GetProperty(_ context.Context, id uuid.UUID) (*property_models.Property, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, property_models.ErrPropertyNotFound
}

type memIdentities struct {
	contractors map[string]uuid.UUID
	landlords   map[string]uuid.UUID
}

func (m memIdentities) ContractorIDByEmail(_ context.Context, email string) (uuid.UUID, error) {
	if id, ok := m.contractors[email]; ok {
		return id, nil
	}
	return uuid.Nil, identity_models.ErrIdentityNotFound
}

func (m memIdentities) LandlordIDByEmail(_ context.Context, email string) (uuid.UUID, error) {
	if id, ok := m.landlords[email]; ok {
		return id, nil
	}
	return uuid.Nil, identity_models.ErrIdentityNotFound
}

type busyLocker struct{}

func (busyLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, fmt.Errorf("%w: %s", lock.ErrNotAcquired, key)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(evt notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func mustRange(t *testing.T, start, end string) booking_models.DateRange {
	t.Helper()
	r, err := booking_models.NewDateRange(start, end)
	require.NoError(t, err)
	return r
}

type fixture struct {
	svc        *Service
	bookings   *memBookings
	pub        *recordingPublisher
	propertyID uuid.UUID
	contractor uuid.UUID
}

func newFixture() *fixture {
	propertyID := uuid.New()
	contractorID := uuid.New()
	bookings := &memBookings{}
	pub := &recordingPublisher{}
	props := memProperties{propertyID: {ID: propertyID, Title: "Harbor Loft", UnitPriceCents: 5000, Currency: "usd"}}
	ids := memIdentities{contractors: map[string]uuid.UUID{"crew@example.com": contractorID}}
	return &fixture{
		svc:        NewService(bookings, props, ids, lock.NewLocalLocker(), pub),
		bookings:   bookings,
		pub:        pub,
		propertyID: propertyID,
		contractor: contractorID,
	}
}

func (f *fixture) assign(t *testing.T, start, end string) (*booking_models.Booking, error) {
	dateID := uuid.New()
	return f.svc.Assign(context.Background(), AssignInput{
		BookingDateID: &dateID,
		PropertyID:    f.propertyID,
		Range:         mustRange(t, start, end),
	})
}

func requireAppErr(t *testing.T, err error, code string, status int) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.Status())
	return appErr
}

func TestAssignSuccess(t *testing.T) {
	f := newFixture()
	dateID := uuid.New()

	b, err := f.svc.Assign(context.Background(), AssignInput{
		BookingDateID:   &dateID,
		PropertyID:      f.propertyID,
		Range:           mustRange(t, "2024-03-01", "2024-03-10"),
		ContractorEmail: "crew@example.com",
		LandlordEmail:   "nobody@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, booking_models.KindAssignment, b.Kind)
	assert.Equal(t, booking_models.BookingStatusPending, b.Status)
	assert.Equal(t, &dateID, b.BookingDateID)
	require.NotNil(t, b.ContractorID)
	assert.Equal(t, f.contractor, *b.ContractorID)
	assert.Nil(t, b.LandlordID, "unknown landlord is stored as null")
	require.NotNil(t, b.PropertyTitle)
	assert.Equal(t, "Harbor Loft", *b.PropertyTitle)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, notify.EventPropertyAssigned, f.pub.events[0].Type)
}

func TestAssignRejectsSecondAssignmentForSameDate(t *testing.T) {
	f := newFixture()
	existing := f.bookings.seed(t, f.propertyID, "2024-01-10", "2024-01-15", booking_models.BookingStatusPending)

	// Different property and interval: still rejected.
	_, err := f.svc.Assign(context.Background(), AssignInput{
		BookingDateID: existing.BookingDateID,
		PropertyID:    uuid.New(),
		Range:         mustRange(t, "2025-06-01", "2025-06-02"),
	})
	appErr := requireAppErr(t, err, "BOOKING_ALREADY_EXISTS", 409)
	assert.Equal(t, map[string]string{"booking_id": existing.ID.String()}, appErr.Details)
	assert.Empty(t, f.pub.events)
}

func TestAssignDateConflict(t *testing.T) {
	f := newFixture()
	existing := f.bookings.seed(t, f.propertyID, "2024-01-10", "2024-01-15", booking_models.BookingStatusConfirmed)

	_, err := f.assign(t, "2024-01-14", "2024-01-20")

	appErr := requireAppErr(t, err, "DATE_CONFLICT", 409)
	assert.Equal(t, map[string]string{
		"start_date": "2024-01-10",
		"end_date":   "2024-01-15",
		"booking_id": existing.ID.String(),
	}, appErr.Details)
	assert.Contains(t, appErr.Message, "2024-01-10–2024-01-15")
	assert.Len(t, f.bookings.rows, 1)
}

func TestAssignOverlapBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		conflict   bool
	}{
		{"shares last day", "2024-01-15", "2024-01-20", true},
		{"shares first day", "2024-01-05", "2024-01-10", true},
		{"contained", "2024-01-11", "2024-01-12", true},
		{"day after", "2024-01-16", "2024-01-20", false},
		{"day before", "2024-01-01", "2024-01-09", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.bookings.seed(t, f.propertyID, "2024-01-10", "2024-01-15", booking_models.BookingStatusPending)

			_, err := f.assign(t, tt.start, tt.end)
			if tt.conflict {
				requireAppErr(t, err, "DATE_CONFLICT", 409)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAssignIgnoresCancelledBookings(t *testing.T) {
	f := newFixture()
	f.bookings.seed(t, f.propertyID, "2024-01-10", "2024-01-15", booking_models.BookingStatusCancelled)

	_, err := f.assign(t, "2024-01-12", "2024-01-14")
	require.NoError(t, err)
}

func TestAssignMapsStoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"constraint overlap", booking_models.ErrOverlap, "DATE_CONFLICT", 409},
		{"constraint duplicate", booking_models.ErrDuplicateAssignment, "BOOKING_ALREADY_EXISTS", 409},
		{"missing reference", booking_models.ErrReferenceNotFound, "REFERENCE_NOT_FOUND", 404},
		{"database down", errors.New("conn refused"), "UPSTREAM_ERROR", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.bookings.createErr = tt.err

			_, err := f.assign(t, "2024-03-01", "2024-03-10")
			requireAppErr(t, err, tt.code, tt.status)
			assert.Empty(t, f.pub.events)
		})
	}
}

func TestAssignPropertyBusy(t *testing.T) {
	bookings := &memBookings{}
	svc := NewService(bookings, memProperties{}, memIdentities{}, busyLocker{}, &recordingPublisher{})
	dateID := uuid.New()

	_, err := svc.Assign(context.Background(), AssignInput{
		BookingDateID: &dateID,
		PropertyID:    uuid.New(),
		Range:         mustRange(t, "2024-03-01", "2024-03-10"),
	})
	requireAppErr(t, err, "PROPERTY_BUSY", 409)
	assert.Empty(t, bookings.rows)
}

func TestDirectBooking(t *testing.T) {
	f := newFixture()

	b, err := f.svc.Assign(context.Background(), AssignInput{
		PropertyID: f.propertyID,
		Range:      mustRange(t, "2024-05-01", "2024-05-03"),
	})
	require.NoError(t, err)
	assert.Equal(t, booking_models.KindDirect, b.Kind)
	assert.Nil(t, b.BookingDateID)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, notify.EventBookingCreated, f.pub.events[0].Type)

	_, err = f.svc.Assign(context.Background(), AssignInput{
		PropertyID: f.propertyID,
		Range:      mustRange(t, "2024-05-03", "2024-05-04"),
	})
	requireAppErr(t, err, "DATE_CONFLICT", 409)
}

func TestConcurrentAssignmentsBookOnce(t *testing.T) {
	f := newFixture()
	f.bookings.listDelay = 5 * time.Millisecond

	const attempts = 8
	r := mustRange(t, "2024-07-01", "2024-07-10")
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dateID := uuid.New()
			_, errs[i] = f.svc.Assign(context.Background(), AssignInput{BookingDateID: &dateID, PropertyID: f.propertyID, Range: r})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var appErr *apperr.Error
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, "DATE_CONFLICT", appErr.Code)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.bookings.rows, 1)
}
