package property_models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/property-booking/config/db"
	"github.com/joy095/property-booking/logger"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrLandlordNotFound = errors.New("landlord not found")
)

// Property is a rentable unit. IsAvailable is cleared when the property is
// booked and is only set again by an administrator.
type Property struct {
	ID             uuid.UUID  `json:"id"`
	LandlordID     *uuid.UUID `json:"landlord_id"`
	Title          string     `json:"title"`
	Address        *string    `json:"address"`
	City           *string    `json:"city"`
	PropertyType   *string    `json:"property_type"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Currency       string     `json:"currency"`
	IsAvailable    bool       `json:"is_available"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewProperty creates an available property.
func NewProperty(title string, unitPriceCents int64, currency string) (*Property, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for property: %w", err)
	}
	now := time.Now()
	return &Property{
		ID:             id,
		Title:          strings.TrimSpace(title),
		UnitPriceCents: unitPriceCents,
		Currency:       strings.ToLower(currency),
		IsAvailable:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

type Store struct {
	db db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{db: pool}
}

const propertyColumns = `
	id, landlord_id, title, address, city, property_type, unit_price_cents, currency,
	is_available, created_at, updated_at`

func scanProperty(row pgx.Row) (*Property, error) {
	p := &Property{}
	err := row.Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.Address, &p.City, &p.PropertyType, &p.UnitPriceCents, &p.Currency,
		&p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreateProperty inserts p. Returns ErrLandlordNotFound for an unknown
// landlord.
func (s *Store) CreateProperty(ctx context.Context, p *Property) error {
	logger.InfoLogger.Infof("Attempting to create property %s (%s)", p.ID, p.Title)

	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.Exec(ctx, query,
		p.ID, p.LandlordID, p.Title, p.Address, p.City, p.PropertyType, p.UnitPriceCents, p.Currency,
		p.IsAvailable, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if code, _, ok := db.ConstraintError(err); ok && code == db.CodeForeignKeyViolation {
			return ErrLandlordNotFound
		}
		logger.ErrorLogger.Errorf("Failed to create property %s: %v", p.ID, err)
		return fmt.Errorf("failed to create property: %w", err)
	}

	logger.InfoLogger.Infof("Property %s created successfully", p.ID)
	return nil
}

// GetProperty fetches a property by ID.
func (s *Store) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	logger.InfoLogger.Infof("Attempting to fetch property with ID: %s", id)

	p, err := scanProperty(s.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Property with ID %s not found", id)
			return nil, ErrPropertyNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch property %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching property: %w", err)
	}
	return p, nil
}

// SetAvailability flips the availability flag. Used by administrators to
// release a property once its bookings have lapsed.
func (s *Store) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*Property, error) {
	logger.InfoLogger.Infof("Updating availability for property %s to %t", id, available)

	query := `
		UPDATE properties
		SET is_available = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + propertyColumns

	p, err := scanProperty(s.db.QueryRow(ctx, query, id, available))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		logger.ErrorLogger.Errorf("Failed to update property %s availability: %v", id, err)
		return nil, fmt.Errorf("failed to update property availability: %w", err)
	}
	return p, nil
}
