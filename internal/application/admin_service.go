package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/identity"
)

// ApproveBookingRequest is the admin approval form.
type ApproveBookingRequest struct {
	Start       time.Time        `json:"start" binding:"required"`
	End         time.Time        `json:"end" binding:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	ProviderID  *uuid.UUID       `json:"provider_id"`
	CorporateID *uuid.UUID       `json:"corporate_id"`
}

// RejectBookingRequest is the admin rejection form.
type RejectBookingRequest struct {
	Reason         string `json:"reason"`
	AlternateSlots string `json:"alternate_slots"`
}

// CancelBookingRequest is the admin cancellation form.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// BookingDetailDTO is a booking together with its requester.
type BookingDetailDTO struct {
	BookingDTO
	Owner *UserDTO `json:"owner,omitempty"`
}

// ApprovalResult is an approved booking with any advisory warnings.
type ApprovalResult struct {
	Booking  BookingDTO `json:"booking"`
	Warnings []string   `json:"warnings,omitempty"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// GetBooking retrieves a single booking by ID with its requester.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDetailDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	result := &BookingDetailDTO{BookingDTO: toBookingDTO(bk)}
	owner, err := s.identity.GetUser(ctx, bk.OwnerID())
	switch {
	case err == nil:
		result.Owner = owner
	case errors.Is(err, identity.ErrNotFound):
	default:
		return nil, err
	}
	return result, nil
}

// ApproveBooking assigns the slot and amount, warns about overlapping sessions of the
// same provider and sends the approval email once. A referenced provider or corporate
// must exist and be active. An offline session paid offline is
// confirmed directly and gets the confirmation email instead.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID uuid.UUID, req ApproveBookingRequest) (*ApprovalResult, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.directory.CheckAssignment(ctx, req.ProviderID, req.CorporateID); err != nil {
		return nil, fmt.Errorf("approve booking: %w", err)
	}

	err = s.engine.Approve(ctx, bk, ApproveParams{
		SlotStart:   req.Start,
		SlotEnd:     req.End,
		Amount:      req.Amount,
		ProviderID:  req.ProviderID,
		CorporateID: req.CorporateID,
	})
	if err != nil {
		return nil, err
	}

	result := &ApprovalResult{}
	if warning := s.checkOverlap(ctx, bk); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	if bk.Status() == bookingDomain.StatusConfirmed {
		s.mailer.sendOnce(ctx, s.engine, bk, confirmationEmail)
	} else {
		s.mailer.sendOnce(ctx, s.engine, bk, approvalEmail)
	}

	result.Booking = toBookingDTO(bk)
	return result, nil
}

// RejectBooking rejects a pending booking and sends the rejection email once.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID uuid.UUID, req RejectBookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Reject(ctx, bk, req.Reason, req.AlternateSlots); err != nil {
		return nil, err
	}
	s.mailer.sendOnce(ctx, s.engine, bk, rejectionEmail)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels an approved, payment-pending or confirmed booking.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, req CancelBookingRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.CancelByAdmin(ctx, bk, req.Reason); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteBooking marks a confirmed session as held.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Complete(ctx, bk); err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// checkOverlap returns a warning when the approved slot intersects another approved or
// confirmed session of the same provider. Lookup failures are logged and ignored.
func (s *BookingService) checkOverlap(ctx context.Context, bk *bookingDomain.Booking) string {
	provider := bk.ProviderID()
	if provider == nil || bk.ApprovedSlotStart() == nil || bk.ApprovedSlotEnd() == nil {
		return ""
	}

	overlapping, err := s.repo.FindOverlapping(ctx, *provider, *bk.ApprovedSlotStart(), *bk.ApprovedSlotEnd(), bk.ID())
	if err != nil {
		s.logger.Error("failed to check slot overlap",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
		return ""
	}
	if len(overlapping) == 0 {
		return ""
	}

	s.logger.Warn("approved slot overlaps existing sessions",
		zap.String("booking_id", bk.ID().String()),
		zap.String("provider_id", provider.String()),
		zap.Int("overlapping", len(overlapping)),
	)
	s.events.publishOverlap(ctx, bk, overlapping)
	return fmt.Sprintf("Slot overlaps with %d existing session(s) for this provider", len(overlapping))
}
