package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AcknowledgementID string          `gorm:"uniqueIndex;not null;size:20"`
	OwnerID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status            string          `gorm:"not null;size:30;index"`
	Details           json.RawMessage `gorm:"type:jsonb;not null"`
	Preference        json.RawMessage `gorm:"type:jsonb;not null"`
	Mode              string          `gorm:"not null;size:10"`
	PaymentMode       *string         `gorm:"size:10"`

	ProviderID        *uuid.UUID          `gorm:"type:uuid;index"`
	CorporateID       *uuid.UUID          `gorm:"type:uuid"`
	ApprovedSlotStart *time.Time          `gorm:"type:timestamptz"`
	ApprovedSlotEnd   *time.Time          `gorm:"type:timestamptz"`
	Amount            decimal.NullDecimal `gorm:"type:numeric(10,2)"`

	RejectionReason string `gorm:"type:text"`
	AlternateSlots  string `gorm:"type:text"`

	EmailVerificationToken *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CancellationToken      *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	PaymentReference       *string    `gorm:"size:64;uniqueIndex"`

	EmailVerified        bool `gorm:"not null;default:false"`
	ConsentGiven         bool `gorm:"not null;default:false"`
	ApprovalNotified     bool `gorm:"not null;default:false"`
	RejectionNotified    bool `gorm:"not null;default:false"`
	ConfirmationNotified bool `gorm:"not null;default:false"`

	ConsentGivenAt              *time.Time `gorm:"type:timestamptz"`
	EmailVerifiedAt             *time.Time `gorm:"type:timestamptz"`
	LastVerificationEmailSentAt *time.Time `gorm:"type:timestamptz"`
	SubmittedAt                 *time.Time `gorm:"type:timestamptz"`
	ApprovedAt                  *time.Time `gorm:"type:timestamptz"`
	RejectedAt                  *time.Time `gorm:"type:timestamptz"`
	PaymentRequestedAt          *time.Time `gorm:"type:timestamptz"`
	PaymentFailedAt             *time.Time `gorm:"type:timestamptz"`
	ConfirmedAt                 *time.Time `gorm:"type:timestamptz"`
	CompletedAt                 *time.Time `gorm:"type:timestamptz"`
	CancellationRequestedAt     *time.Time `gorm:"type:timestamptz"`
	CancelledAt                 *time.Time `gorm:"type:timestamptz"`

	CancellationReason string  `gorm:"type:text"`
	CancelledBy        *string `gorm:"size:10"`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByAcknowledgementID retrieves a booking by its public code.
func (r *GormBookingRepository) FindByAcknowledgementID(ctx context.Context, ackID string) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "acknowledgement_id = ?", ackID)
}

// FindByVerificationToken retrieves the booking holding an email verification token.
func (r *GormBookingRepository) FindByVerificationToken(ctx context.Context, token uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "email_verification_token = ?", token)
}

// FindByCancellationToken retrieves the booking holding a cancellation token.
func (r *GormBookingRepository) FindByCancellationToken(ctx context.Context, token uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "cancellation_token = ?", token)
}

// FindByPaymentReference retrieves the booking holding a payment reference.
func (r *GormBookingRepository) FindByPaymentReference(ctx context.Context, reference string) (*bookingDomain.Booking, error) {
	return r.findOne(ctx, "payment_reference = ?", reference)
}

func (r *GormBookingRepository) findOne(ctx context.Context, query string, arg interface{}) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingDomain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return toDomainBooking(&model)
}

// FindLatestByOwner returns the owner's most recent booking in statuses, or nil.
func (r *GormBookingRepository) FindLatestByOwner(ctx context.Context, ownerID uuid.UUID, statuses []bookingDomain.Status, ackID *string) (*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("owner_id = ? AND status IN ?", ownerID, statusStrings(statuses))
	if ackID != nil {
		q = q.Where("acknowledgement_id = ?", *ackID)
	}

	var models []BookingModel
	if err := q.Order("created_at DESC").Limit(1).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find owner booking: %w", err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toDomainBooking(&models[0])
}

// ExistsByOwner reports whether the owner has a booking in statuses outside exclude.
func (r *GormBookingRepository) ExistsByOwner(ctx context.Context, ownerID uuid.UUID, statuses []bookingDomain.Status, exclude ...uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("owner_id = ? AND status IN ?", ownerID, statusStrings(statuses))
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check owner bookings: %w", err)
	}
	return count > 0, nil
}

// FindOverlapping returns approved or confirmed bookings of the provider whose slot
// intersects [start, end).
func (r *GormBookingRepository) FindOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude uuid.UUID) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND id <> ?", providerID, exclude).
		Where("status IN ?", []string{string(bookingDomain.StatusApproved), string(bookingDomain.StatusConfirmed)}).
		Where("approved_slot_start < ? AND approved_slot_end > ?", end, start).
		Order("approved_slot_start ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	return toDomainBookings(models)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update writes the booking's changed columns with optimistic locking. The caller has
// already called IncrementVersion, so the stored row must hold Version()-1.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	columns := model.columnValues()
	updates := map[string]interface{}{
		"version":    model.Version,
		"updated_at": model.UpdatedAt,
	}
	for _, col := range bk.ChangedColumns() {
		v, ok := columns[col]
		if !ok {
			return fmt.Errorf("unknown booking column %q", col)
		}
		updates[col] = v
	}

	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bookingDomain.ErrConflict
	}
	return nil
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func statusStrings(statuses []bookingDomain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// columnValues maps every column the aggregate can change to the model's value.
func (m *BookingModel) columnValues() map[string]interface{} {
	return map[string]interface{}{
		bookingDomain.ColStatus:                      m.Status,
		bookingDomain.ColSubmittedAt:                 m.SubmittedAt,
		bookingDomain.ColApprovedSlotStart:           m.ApprovedSlotStart,
		bookingDomain.ColApprovedSlotEnd:             m.ApprovedSlotEnd,
		bookingDomain.ColAmount:                      m.Amount,
		bookingDomain.ColProviderID:                  m.ProviderID,
		bookingDomain.ColCorporateID:                 m.CorporateID,
		bookingDomain.ColApprovedAt:                  m.ApprovedAt,
		bookingDomain.ColConfirmedAt:                 m.ConfirmedAt,
		bookingDomain.ColRejectionReason:             m.RejectionReason,
		bookingDomain.ColAlternateSlots:              m.AlternateSlots,
		bookingDomain.ColRejectedAt:                  m.RejectedAt,
		bookingDomain.ColPaymentReference:            m.PaymentReference,
		bookingDomain.ColPaymentRequestedAt:          m.PaymentRequestedAt,
		bookingDomain.ColPaymentFailedAt:             m.PaymentFailedAt,
		bookingDomain.ColCompletedAt:                 m.CompletedAt,
		bookingDomain.ColCancellationReason:          m.CancellationReason,
		bookingDomain.ColCancelledAt:                 m.CancelledAt,
		bookingDomain.ColCancelledBy:                 m.CancelledBy,
		bookingDomain.ColCancellationToken:           m.CancellationToken,
		bookingDomain.ColCancellationRequestedAt:     m.CancellationRequestedAt,
		bookingDomain.ColEmailVerified:               m.EmailVerified,
		bookingDomain.ColEmailVerifiedAt:             m.EmailVerifiedAt,
		bookingDomain.ColEmailVerificationToken:      m.EmailVerificationToken,
		bookingDomain.ColLastVerificationEmailSentAt: m.LastVerificationEmailSentAt,
		bookingDomain.ColApprovalNotified:            m.ApprovalNotified,
		bookingDomain.ColRejectionNotified:           m.RejectionNotified,
		bookingDomain.ColConfirmationNotified:        m.ConfirmationNotified,
	}
}

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	s := bk.Snapshot()

	detailsJSON, err := json.Marshal(s.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal details: %w", err)
	}
	preferenceJSON, err := json.Marshal(s.Preference)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference: %w", err)
	}

	var paymentMode *string
	if s.PaymentMode != nil {
		pm := string(*s.PaymentMode)
		paymentMode = &pm
	}
	var cancelledBy *string
	if s.CancelledBy != nil {
		cb := string(*s.CancelledBy)
		cancelledBy = &cb
	}
	var amount decimal.NullDecimal
	if s.Amount != nil {
		amount = decimal.NewNullDecimal(*s.Amount)
	}

	return &BookingModel{
		ID:                          s.ID,
		AcknowledgementID:           s.AcknowledgementID,
		OwnerID:                     s.OwnerID,
		Status:                      string(s.Status),
		Details:                     detailsJSON,
		Preference:                  preferenceJSON,
		Mode:                        string(s.Mode),
		PaymentMode:                 paymentMode,
		ProviderID:                  s.ProviderID,
		CorporateID:                 s.CorporateID,
		ApprovedSlotStart:           s.ApprovedSlotStart,
		ApprovedSlotEnd:             s.ApprovedSlotEnd,
		Amount:                      amount,
		RejectionReason:             s.RejectionReason,
		AlternateSlots:              s.AlternateSlots,
		EmailVerificationToken:      s.EmailVerificationToken,
		CancellationToken:           s.CancellationToken,
		PaymentReference:            s.PaymentReference,
		EmailVerified:               s.EmailVerified,
		ConsentGiven:                s.ConsentGiven,
		ApprovalNotified:            s.ApprovalNotified,
		RejectionNotified:           s.RejectionNotified,
		ConfirmationNotified:        s.ConfirmationNotified,
		ConsentGivenAt:              s.ConsentGivenAt,
		EmailVerifiedAt:             s.EmailVerifiedAt,
		LastVerificationEmailSentAt: s.LastVerificationEmailSentAt,
		SubmittedAt:                 s.SubmittedAt,
		ApprovedAt:                  s.ApprovedAt,
		RejectedAt:                  s.RejectedAt,
		PaymentRequestedAt:          s.PaymentRequestedAt,
		PaymentFailedAt:             s.PaymentFailedAt,
		ConfirmedAt:                 s.ConfirmedAt,
		CompletedAt:                 s.CompletedAt,
		CancellationRequestedAt:     s.CancellationRequestedAt,
		CancelledAt:                 s.CancelledAt,
		CancellationReason:          s.CancellationReason,
		CancelledBy:                 cancelledBy,
		Version:                     s.Version,
		CreatedAt:                   s.CreatedAt,
		UpdatedAt:                   s.UpdatedAt,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var details bookingDomain.Details
	if err := json.Unmarshal(m.Details, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal details: %w", err)
	}
	var preference bookingDomain.Preference
	if len(m.Preference) > 0 {
		if err := json.Unmarshal(m.Preference, &preference); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preference: %w", err)
		}
	}

	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	var paymentMode *bookingDomain.PaymentMode
	if m.PaymentMode != nil {
		pm := bookingDomain.PaymentMode(*m.PaymentMode)
		paymentMode = &pm
	}
	var cancelledBy *bookingDomain.Actor
	if m.CancelledBy != nil {
		cb := bookingDomain.Actor(*m.CancelledBy)
		cancelledBy = &cb
	}
	var amount *decimal.Decimal
	if m.Amount.Valid {
		a := m.Amount.Decimal
		amount = &a
	}

	return bookingDomain.Reconstruct(bookingDomain.Snapshot{
		ID:                          m.ID,
		AcknowledgementID:           m.AcknowledgementID,
		OwnerID:                     m.OwnerID,
		Status:                      status,
		Details:                     details,
		Preference:                  preference,
		Mode:                        bookingDomain.Mode(m.Mode),
		PaymentMode:                 paymentMode,
		ProviderID:                  m.ProviderID,
		CorporateID:                 m.CorporateID,
		ApprovedSlotStart:           m.ApprovedSlotStart,
		ApprovedSlotEnd:             m.ApprovedSlotEnd,
		Amount:                      amount,
		RejectionReason:             m.RejectionReason,
		AlternateSlots:              m.AlternateSlots,
		EmailVerificationToken:      m.EmailVerificationToken,
		CancellationToken:           m.CancellationToken,
		PaymentReference:            m.PaymentReference,
		EmailVerified:               m.EmailVerified,
		ConsentGiven:                m.ConsentGiven,
		ApprovalNotified:            m.ApprovalNotified,
		RejectionNotified:           m.RejectionNotified,
		ConfirmationNotified:        m.ConfirmationNotified,
		ConsentGivenAt:              m.ConsentGivenAt,
		EmailVerifiedAt:             m.EmailVerifiedAt,
		LastVerificationEmailSentAt: m.LastVerificationEmailSentAt,
		SubmittedAt:                 m.SubmittedAt,
		ApprovedAt:                  m.ApprovedAt,
		RejectedAt:                  m.RejectedAt,
		PaymentRequestedAt:          m.PaymentRequestedAt,
		PaymentFailedAt:             m.PaymentFailedAt,
		ConfirmedAt:                 m.ConfirmedAt,
		CompletedAt:                 m.CompletedAt,
		CancellationRequestedAt:     m.CancellationRequestedAt,
		CancelledAt:                 m.CancelledAt,
		CancellationReason:          m.CancellationReason,
		CancelledBy:                 cancelledBy,
		Version:                     m.Version,
		CreatedAt:                   m.CreatedAt,
		UpdatedAt:                   m.UpdatedAt,
	}), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
