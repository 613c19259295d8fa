package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the identity a booking belongs to. It is keyed by a normalized email.
type User struct {
	id        uuid.UUID
	email     string
	fullName  string
	phone     string
	createdAt time.Time
	updatedAt time.Time
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email address: %s", email)
	}
	return email, nil
}

// NewUser creates a new identity for the given email.
func NewUser(email string) (*User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		id:        uuid.New(),
		email:     normalized,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(id uuid.UUID, email, fullName, phone string, createdAt, updatedAt time.Time) *User {
	return &User{
		id:        id,
		email:     email,
		fullName:  fullName,
		phone:     phone,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ApplyProfile copies non-empty intake fields onto the user. It reports whether anything
// changed.
func (u *User) ApplyProfile(fullName, phone string, now time.Time) bool {
	changed := false
	if fullName = strings.TrimSpace(fullName); fullName != "" && fullName != u.fullName {
		u.fullName = fullName
		changed = true
	}
	if phone = strings.TrimSpace(phone); phone != "" && phone != u.phone {
		u.phone = phone
		changed = true
	}
	if changed {
		u.updatedAt = now.UTC()
	}
	return changed
}

func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Email() string        { return u.email }
func (u *User) FullName() string     { return u.fullName }
func (u *User) Phone() string        { return u.phone }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }
