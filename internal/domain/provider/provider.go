package provider

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Specialization is a counselor's area of practice.
type Specialization string

const (
	SpecializationAnxiety      Specialization = "ANXIETY"
	SpecializationDepression   Specialization = "DEPRESSION"
	SpecializationStress       Specialization = "STRESS"
	SpecializationCareer       Specialization = "CAREER"
	SpecializationRelationship Specialization = "RELATIONSHIP"
	SpecializationGeneral      Specialization = "GENERAL"
)

var validSpecializations = map[Specialization]bool{
	SpecializationAnxiety:      true,
	SpecializationDepression:   true,
	SpecializationStress:       true,
	SpecializationCareer:       true,
	SpecializationRelationship: true,
	SpecializationGeneral:      true,
}

// ParseSpecialization accepts a specialization in any case.
func ParseSpecialization(s string) (Specialization, error) {
	spec := Specialization(strings.ToUpper(strings.TrimSpace(s)))
	if !validSpecializations[spec] {
		return "", fmt.Errorf("invalid specialization: %s", s)
	}
	return spec, nil
}

// Provider is a counselor a booking can be assigned to on approval.
type Provider struct {
	id              uuid.UUID
	fullName        string
	email           string
	specialization  Specialization
	experienceYears int
	bio             string
	active          bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewProvider validates and creates an active provider.
func NewProvider(fullName, email string, specialization Specialization, experienceYears int, bio string, now time.Time) (*Provider, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("full name is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email address: %s", email)
	}
	if !validSpecializations[specialization] {
		return nil, fmt.Errorf("invalid specialization: %s", specialization)
	}
	if experienceYears < 0 {
		return nil, fmt.Errorf("experience years must not be negative")
	}

	now = now.UTC()
	return &Provider{
		id:              uuid.New(),
		fullName:        fullName,
		email:           email,
		specialization:  specialization,
		experienceYears: experienceYears,
		bio:             strings.TrimSpace(bio),
		active:          true,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Provider from persistence data (no validation).
func Reconstruct(id uuid.UUID, fullName, email string, specialization Specialization, experienceYears int, bio string, active bool, createdAt, updatedAt time.Time) *Provider {
	return &Provider{
		id:              id,
		fullName:        fullName,
		email:           email,
		specialization:  specialization,
		experienceYears: experienceYears,
		bio:             bio,
		active:          active,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// SetActive toggles whether new sessions may be assigned. It reports whether anything
// changed.
func (p *Provider) SetActive(active bool, now time.Time) bool {
	if p.active == active {
		return false
	}
	p.active = active
	p.updatedAt = now.UTC()
	return true
}

func (p *Provider) ID() uuid.UUID                  { return p.id }
func (p *Provider) FullName() string               { return p.fullName }
func (p *Provider) Email() string                  { return p.email }
func (p *Provider) Specialization() Specialization { return p.specialization }
func (p *Provider) ExperienceYears() int           { return p.experienceYears }
func (p *Provider) Bio() string                    { return p.bio }
func (p *Provider) IsActive() bool                 { return p.active }
func (p *Provider) CreatedAt() time.Time           { return p.createdAt }
func (p *Provider) UpdatedAt() time.Time           { return p.updatedAt }
