package identity_models

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/property-booking/config/db"
	"github.com/joy095/property-booking/logger"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters
const (
	Memory      = 64 * 1024
	Iterations  = 3
	Parallelism = 4
	SaltLength  = 16
	KeyLength   = 64
)

var (
	ErrEmailTaken       = errors.New("email is already registered")
	ErrIdentityNotFound = errors.New("identity not found")
)

// Contractor is the renter side of the marketplace. Contractors are
// provisioned when they submit their first booking request.
type Contractor struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        *string   `json:"phone"`
	Company      *string   `json:"company"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Landlord owns properties.
type Landlord struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail lowercases and trims an address before it is stored or
// compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewContractor builds a contractor with a hashed password.
func NewContractor(email, firstName, lastName string, phone, company *string, password string) (*Contractor, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for contractor: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &Contractor{
		ID:           id,
		Email:        NormalizeEmail(email),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Phone:        phone,
		Company:      company,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}, nil
}

// FullName joins first and last name for display fields.
func (c *Contractor) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func generateSalt(size int) ([]byte, error) {
	salt := make([]byte, size)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// HashPassword hashes a password using Argon2id. The result is
// "<salt>$<hash>", both base64 encoded.
func HashPassword(password string) (string, error) {
	salt, err := generateSalt(SaltLength)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), KeyLength)

	saltBase64 := base64.RawStdEncoding.EncodeToString(salt)
	hashBase64 := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s$%s", saltBase64, hashBase64), nil
}

// VerifyPassword verifies a password against a stored hash.
func VerifyPassword(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 2 {
		return false, errors.New("invalid stored hash format")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, err
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), KeyLength)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// EmailRegistered reports whether email belongs to a contractor or a
// landlord.
func EmailRegistered(ctx context.Context, q db.DBTX, email string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM contractors WHERE email = $1)
		    OR EXISTS (SELECT 1 FROM landlords WHERE email = $1)`

	var exists bool
	if err := q.QueryRow(ctx, query, NormalizeEmail(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email availability: %w", err)
	}
	return exists, nil
}

// InsertContractor stores c. A concurrent signup with the same email
// surfaces as ErrEmailTaken.
func InsertContractor(ctx context.Context, q db.DBTX, c *Contractor) error {
	logger.InfoLogger.Infof("Attempting to create contractor %s", c.ID)

	query := `
		INSERT INTO contractors (id, email, first_name, last_name, phone, company, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query, c.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.Company, c.PasswordHash, c.CreatedAt)
	if err != nil {
		if code, _, ok := db.ConstraintError(err); ok && code == db.CodeUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create contractor: %w", err)
	}
	return nil
}

// Store looks up identities for display denormalisation.
type Store struct {
	db db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{db: pool}
}

// ContractorIDByEmail returns ErrIdentityNotFound when no contractor uses
// the address.
func (s *Store) ContractorIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	return s.idByEmail(ctx, `SELECT id FROM contractors WHERE email = $1`, email)
}

// LandlordIDByEmail returns ErrIdentityNotFound when no landlord uses the
// address.
func (s *Store) LandlordIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	return s.idByEmail(ctx, `SELECT id FROM landlords WHERE email = $1`, email)
}

func (s *Store) idByEmail(ctx context.Context, query, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, NormalizeEmail(email)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrIdentityNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	return id, nil
}
