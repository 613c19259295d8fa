package corporate

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Corporate is an organization whose employees' sessions it sponsors.
type Corporate struct {
	id            uuid.UUID
	name          string
	contactPerson string
	contactEmail  string
	contactPhone  string
	active        bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewCorporate validates and creates an active corporate client.
func NewCorporate(name, contactPerson, contactEmail, contactPhone string, now time.Time) (*Corporate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	contactEmail = strings.ToLower(strings.TrimSpace(contactEmail))
	if _, err := mail.ParseAddress(contactEmail); err != nil {
		return nil, fmt.Errorf("invalid contact email: %s", contactEmail)
	}
	contactPhone = strings.TrimSpace(contactPhone)
	if len(contactPhone) > 15 {
		return nil, fmt.Errorf("contact phone must be at most 15 characters")
	}

	now = now.UTC()
	return &Corporate{
		id:            uuid.New(),
		name:          name,
		contactPerson: strings.TrimSpace(contactPerson),
		contactEmail:  contactEmail,
		contactPhone:  contactPhone,
		active:        true,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Reconstruct rebuilds a Corporate from persistence data (no validation).
func Reconstruct(id uuid.UUID, name, contactPerson, contactEmail, contactPhone string, active bool, createdAt, updatedAt time.Time) *Corporate {
	return &Corporate{
		id:            id,
		name:          name,
		contactPerson: contactPerson,
		contactEmail:  contactEmail,
		contactPhone:  contactPhone,
		active:        active,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// SetActive toggles whether new sessions may be billed to the client. It reports
// whether anything changed.
func (c *Corporate) SetActive(active bool, now time.Time) bool {
	if c.active == active {
		return false
	}
	c.active = active
	c.updatedAt = now.UTC()
	return true
}

func (c *Corporate) ID() uuid.UUID         { return c.id }
func (c *Corporate) Name() string          { return c.name }
func (c *Corporate) ContactPerson() string { return c.contactPerson }
func (c *Corporate) ContactEmail() string  { return c.contactEmail }
func (c *Corporate) ContactPhone() string  { return c.contactPhone }
func (c *Corporate) IsActive() bool        { return c.active }
func (c *Corporate) CreatedAt() time.Time  { return c.createdAt }
func (c *Corporate) UpdatedAt() time.Time  { return c.updatedAt }
