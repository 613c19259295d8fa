package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/domain/identity"
	"github.com/mindsettler/service-booking/internal/metrics"
)

// Public response messages.
const (
	MsgExistingBooking       = "Please verify your email to continue and view details of your existing booking."
	MsgDraftCreated          = "Verification email sent. Please verify to submit booking."
	MsgNoActiveBooking       = "No active booking found."
	MsgStatusEmailSent       = "Verification email sent. Verify to view your booking details."
	MsgDuplicateRejected     = "Another active booking already exists. This request was rejected."
	MsgEmailVerified         = "Email verified successfully"
	MsgBookingCancelled      = "Booking cancelled successfully"
	MsgCancellationEmailSent = "Cancellation verification email sent"
	MsgPaymentInitiated      = "Payment initiated"
	MsgPaymentSuccessful     = "Payment successful"
)

// CreateDraftRequest is the intake form.
type CreateDraftRequest struct {
	Email              string  `json:"email"`
	ConsentGiven       bool    `json:"consent_given"`
	FullName           string  `json:"full_name"`
	PhoneNumber        string  `json:"phone_number"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Country            string  `json:"country"`
	Age                *int    `json:"age"`
	Gender             string  `json:"gender"`
	EmergencyContact   string  `json:"emergency_contact"`
	UserMessage        string  `json:"user_message"`
	PreferredDate      string  `json:"preferred_date"`
	PreferredPeriod    string  `json:"preferred_period"`
	PreferredTimeStart string  `json:"preferred_time_start"`
	PreferredTimeEnd   string  `json:"preferred_time_end"`
	Mode               string  `json:"mode"`
	PaymentMode        *string `json:"payment_mode"`
}

// ChatbotIntentRequest is what the chat assistant posts once it has gathered a
// booking request in conversation.
type ChatbotIntentRequest struct {
	Intent             string  `json:"intent" binding:"required"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	Phone              string  `json:"phone"`
	ConsentGiven       bool    `json:"consent_given"`
	UserMessage        string  `json:"user_message"`
	PreferredDate      string  `json:"preferred_date"`
	PreferredPeriod    string  `json:"preferred_period"`
	PreferredTimeStart string  `json:"preferred_time_start"`
	PreferredTimeEnd   string  `json:"preferred_time_end"`
	Mode               string  `json:"mode"`
	PaymentMode        *string `json:"payment_mode"`
}

// IntentBookSession is the only chatbot intent that creates a booking.
const IntentBookSession = "book_session"

// DraftResult reports whether a new draft was created or an existing booking was found.
type DraftResult struct {
	Existing bool   `json:"-"`
	Message  string `json:"message"`
}

// VerifyEmailResult is returned when a verification link is followed.
type VerifyEmailResult struct {
	Message string            `json:"message"`
	Status  string            `json:"status,omitempty"`
	Booking *PublicBookingDTO `json:"booking,omitempty"`
}

// StatusEmailResult is returned by RequestStatusEmail.
type StatusEmailResult struct {
	HasBooking bool   `json:"has_booking"`
	Message    string `json:"message"`
}

// ActionResult carries a message and the booking's resulting status.
type ActionResult struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// PaymentInitiation is returned by InitiatePayment.
type PaymentInitiation struct {
	Message          string `json:"message"`
	PaymentReference string `json:"payment_reference"`
	Amount           string `json:"amount"`
}

// ServiceDependencies holds the collaborators of BookingService.
type ServiceDependencies struct {
	Bookings          bookingDomain.Repository
	Users             identity.Resolver
	Directory         AssignmentChecker
	Notifier          Notifier
	Producer          EventPublisher
	Limiter           Limiter
	FrontendURL       string
	ResendWindow      time.Duration
	StatusEmailWindow time.Duration
	Now               func() time.Time
	Logger            *zap.Logger
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo              bookingDomain.Repository
	identity          *IdentityService
	directory         AssignmentChecker
	engine            *LifecycleEngine
	payments          *PaymentCoordinator
	queries           *BookingQueries
	mailer            *bookingMailer
	events            *eventPublisher
	limiter           Limiter
	resendWindow      time.Duration
	statusEmailWindow time.Duration
	logger            *zap.Logger
}

// NewBookingService wires the engine, coordinator and queries around one record store.
func NewBookingService(deps ServiceDependencies) *BookingService {
	engine := NewLifecycleEngine(deps.Bookings, deps.Now)
	events := newEventPublisher(deps.Producer, deps.Logger)
	engine.SetListener(events)

	mailer := newBookingMailer(deps.Notifier, deps.Users, deps.FrontendURL, deps.Logger)

	return &BookingService{
		repo:              deps.Bookings,
		identity:          NewIdentityService(deps.Users, deps.Logger),
		directory:         deps.Directory,
		engine:            engine,
		payments:          newPaymentCoordinator(engine, mailer, deps.Logger),
		queries:           NewBookingQueries(deps.Bookings),
		mailer:            mailer,
		events:            events,
		limiter:           deps.Limiter,
		resendWindow:      deps.ResendWindow,
		statusEmailWindow: deps.StatusEmailWindow,
		logger:            deps.Logger,
	}
}

// CreateDraft records an intake request. When the requester already holds an active
// booking, no draft is created and its verification link is re-sent instead.
func (s *BookingService) CreateDraft(ctx context.Context, req CreateDraftRequest) (*DraftResult, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", bookingDomain.ErrValidation)
	}
	if !req.ConsentGiven {
		return nil, fmt.Errorf("%w: privacy policy consent required", bookingDomain.ErrValidation)
	}

	user, err := s.identity.Resolve(ctx, req.Email, req.FullName, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	active, err := s.queries.GetActiveBooking(ctx, user.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up active booking: %w", err)
	}
	if active != nil {
		if err := s.sendVerification(ctx, active, s.resendWindow, "draft"); err != nil {
			return nil, err
		}
		return &DraftResult{Existing: true, Message: MsgExistingBooking}, nil
	}

	params, err := draftParams(user.ID(), req)
	if err != nil {
		return nil, err
	}

	now := s.engine.Now()
	bk, err := bookingDomain.NewDraft(params, now)
	if err != nil {
		return nil, err
	}
	bk.MarkVerificationEmailSent(now)

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}
	bk.ClearChanges()

	s.logger.Info("booking draft created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("acknowledgement_id", bk.AcknowledgementID()),
	)
	s.events.publishDrafted(ctx, bk)
	s.mailer.SendVerification(ctx, bk, *bk.EmailVerificationToken())

	return &DraftResult{Message: MsgDraftCreated}, nil
}

// CreateDraftFromChatbot records a booking request gathered by the chat assistant. It
// behaves exactly like CreateDraft once the intent is accepted.
func (s *BookingService) CreateDraftFromChatbot(ctx context.Context, req ChatbotIntentRequest) (*DraftResult, error) {
	if strings.TrimSpace(req.Intent) != IntentBookSession {
		return nil, fmt.Errorf("%w: unsupported intent %q", bookingDomain.ErrValidation, req.Intent)
	}
	return s.CreateDraft(ctx, CreateDraftRequest{
		Email:              req.Email,
		ConsentGiven:       req.ConsentGiven,
		FullName:           req.Name,
		PhoneNumber:        req.Phone,
		UserMessage:        req.UserMessage,
		PreferredDate:      req.PreferredDate,
		PreferredPeriod:    req.PreferredPeriod,
		PreferredTimeStart: req.PreferredTimeStart,
		PreferredTimeEnd:   req.PreferredTimeEnd,
		Mode:               req.Mode,
		PaymentMode:        req.PaymentMode,
	})
}

// VerifyEmail follows a verification link. A draft whose owner already holds another
// active booking is rejected.
func (s *BookingService) VerifyEmail(ctx context.Context, token string) (*VerifyEmailResult, error) {
	tokenID, err := parseToken(token, "verification")
	if err != nil {
		return nil, err
	}

	bk, err := s.repo.FindByVerificationToken(ctx, tokenID)
	if err != nil {
		return nil, wrapNotFound(err, "invalid or expired verification link")
	}
	if bk.Status().IsTerminal() {
		return nil, fmt.Errorf("%w: invalid or expired verification link", bookingDomain.ErrNotFound)
	}

	other, err := s.queries.HasActiveBooking(ctx, bk.OwnerID(), bk.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to check active bookings: %w", err)
	}
	if other && bk.Status() == bookingDomain.StatusDraft {
		if err := s.engine.RejectDuplicate(ctx, bk); err != nil {
			return nil, err
		}
		return &VerifyEmailResult{
			Message: MsgDuplicateRejected,
			Status:  string(bk.Status()),
		}, nil
	}

	err = s.engine.Touch(ctx, bk, "verify email", func(now time.Time) {
		bk.VerifyEmail(now)
	})
	if err != nil {
		return nil, err
	}

	if bk.Status() == bookingDomain.StatusDraft {
		if err := s.engine.Submit(ctx, bk); err != nil {
			return nil, err
		}
	}

	projection := toPublicBookingDTO(bk)
	return &VerifyEmailResult{
		Message: MsgEmailVerified,
		Status:  string(bk.Status()),
		Booking: &projection,
	}, nil
}

// CheckStatus returns the public projection of a booking by acknowledgement ID.
func (s *BookingService) CheckStatus(ctx context.Context, ackID string) (*PublicBookingDTO, error) {
	ackID = strings.TrimSpace(ackID)
	if ackID == "" {
		return nil, fmt.Errorf("%w: acknowledgement ID is required", bookingDomain.ErrValidation)
	}

	bk, err := s.repo.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}
	result := toPublicBookingDTO(bk)
	return &result, nil
}

// RequestStatusEmail sends a fresh verification link for the requester's active booking.
func (s *BookingService) RequestStatusEmail(ctx context.Context, email string) (*StatusEmailResult, error) {
	user, err := s.identity.Resolve(ctx, email, "", "")
	if err != nil {
		return nil, err
	}

	bk, err := s.queries.GetActiveBooking(ctx, user.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up active booking: %w", err)
	}
	if bk == nil {
		return &StatusEmailResult{HasBooking: false, Message: MsgNoActiveBooking}, nil
	}

	if err := s.sendVerification(ctx, bk, s.statusEmailWindow, "status"); err != nil {
		return nil, err
	}
	return &StatusEmailResult{HasBooking: true, Message: MsgStatusEmailSent}, nil
}

// RequestCancellation cancels a booking that is not yet confirmed, or emails a
// cancellation link for a confirmed one. A non-empty email narrows the lookup to that
// requester's bookings.
func (s *BookingService) RequestCancellation(ctx context.Context, ackID, email string) (*ActionResult, error) {
	ackID = strings.TrimSpace(ackID)
	if ackID == "" {
		return nil, fmt.Errorf("%w: acknowledgement ID is required", bookingDomain.ErrValidation)
	}

	bk, err := s.findCancellable(ctx, ackID, email)
	if err != nil {
		return nil, err
	}

	if bk.Status() != bookingDomain.StatusConfirmed {
		if err := s.engine.CancelByUser(ctx, bk, ""); err != nil {
			return nil, err
		}
		return &ActionResult{Message: MsgBookingCancelled, Status: string(bk.Status())}, nil
	}

	token, err := s.engine.RequestCancellation(ctx, bk)
	if err != nil {
		return nil, err
	}
	s.mailer.SendCancellationRequest(ctx, bk, token)

	return &ActionResult{Message: MsgCancellationEmailSent, Status: string(bk.Status())}, nil
}

// VerifyCancellation follows a cancellation link and cancels the confirmed booking.
func (s *BookingService) VerifyCancellation(ctx context.Context, token string) (*ActionResult, error) {
	tokenID, err := parseToken(token, "cancellation")
	if err != nil {
		return nil, err
	}

	bk, err := s.repo.FindByCancellationToken(ctx, tokenID)
	if err != nil {
		return nil, wrapNotFound(err, "invalid or expired cancellation link")
	}
	if bk.Status() != bookingDomain.StatusConfirmed {
		return nil, fmt.Errorf("%w: invalid or expired cancellation link", bookingDomain.ErrNotFound)
	}

	if err := s.engine.CancelByUser(ctx, bk, ""); err != nil {
		return nil, err
	}
	return &ActionResult{Message: MsgBookingCancelled, Status: string(bk.Status())}, nil
}

// InitiatePayment starts payment for an approved booking.
func (s *BookingService) InitiatePayment(ctx context.Context, ackID string) (*PaymentInitiation, error) {
	ackID = strings.TrimSpace(ackID)
	if ackID == "" {
		return nil, fmt.Errorf("%w: acknowledgement ID is required", bookingDomain.ErrValidation)
	}

	bk, err := s.repo.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, err
	}

	reference, amount, err := s.payments.InitiatePayment(ctx, bk)
	if err != nil {
		return nil, err
	}
	return &PaymentInitiation{
		Message:          MsgPaymentInitiated,
		PaymentReference: reference,
		Amount:           amount.StringFixed(2),
	}, nil
}

// CompletePayment confirms the booking holding the payment reference.
func (s *BookingService) CompletePayment(ctx context.Context, reference string) (*ActionResult, error) {
	var bk *bookingDomain.Booking
	err := s.withPaymentReference(ctx, reference, func(found *bookingDomain.Booking) error {
		bk = found
		return s.payments.CompletePayment(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Message: MsgPaymentSuccessful, Status: string(bk.Status())}, nil
}

// FailPaymentByReference records a failed payment for the booking holding the reference.
func (s *BookingService) FailPaymentByReference(ctx context.Context, reference string) error {
	return s.withPaymentReference(ctx, reference, func(found *bookingDomain.Booking) error {
		return s.payments.FailPayment(ctx, found)
	})
}

// withPaymentReference loads the booking for reference and runs op on it. A version
// conflict reloads the booking and runs op once more.
func (s *BookingService) withPaymentReference(ctx context.Context, reference string, op func(*bookingDomain.Booking) error) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return fmt.Errorf("%w: payment reference is required", bookingDomain.ErrValidation)
	}

	run := func() error {
		bk, err := s.repo.FindByPaymentReference(ctx, reference)
		if err != nil {
			return wrapNotFound(err, "invalid payment reference")
		}
		return op(bk)
	}

	err := run()
	if errors.Is(err, bookingDomain.ErrConflict) {
		s.logger.Warn("payment callback conflicted, retrying",
			zap.String("payment_reference", reference),
		)
		err = run()
	}
	return err
}

// sendVerification re-sends the verification link of bk unless one went out within
// window. The persisted timestamp covers a single replica and the limiter covers
// concurrent requests across replicas.
func (s *BookingService) sendVerification(ctx context.Context, bk *bookingDomain.Booking, window time.Duration, kind string) error {
	now := s.engine.Now()
	if last := bk.LastVerificationEmailSentAt(); last != nil && now.Sub(*last) < window {
		metrics.ObserveThrottled(kind)
		return ErrThrottled
	}
	key := "verification:" + bk.ID().String()
	if !s.limiter.Allow(ctx, key, window) {
		metrics.ObserveThrottled(kind)
		return ErrThrottled
	}

	var token uuid.UUID
	err := s.engine.Touch(ctx, bk, "issue verification token", func(now time.Time) {
		token = bk.IssueVerificationToken(now)
		bk.MarkVerificationEmailSent(now)
	})
	if err != nil {
		s.limiter.Release(ctx, key)
		return err
	}

	s.mailer.SendVerification(ctx, bk, token)
	return nil
}

func (s *BookingService) findCancellable(ctx context.Context, ackID, email string) (*bookingDomain.Booking, error) {
	notCancellable := fmt.Errorf("%w: booking not found or not cancellable", bookingDomain.ErrNotFound)

	if strings.TrimSpace(email) != "" {
		user, err := s.identity.Resolve(ctx, email, "", "")
		if err != nil {
			return nil, err
		}
		bk, err := s.queries.GetCancellableBooking(ctx, user.ID(), &ackID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up cancellable booking: %w", err)
		}
		if bk == nil {
			return nil, notCancellable
		}
		return bk, nil
	}

	bk, err := s.repo.FindByAcknowledgementID(ctx, ackID)
	if err != nil {
		return nil, wrapNotFound(err, "booking not found or not cancellable")
	}
	if !bk.Status().IsCancellable() {
		return nil, notCancellable
	}
	return bk, nil
}

func draftParams(ownerID uuid.UUID, req CreateDraftRequest) (bookingDomain.DraftParams, error) {
	params := bookingDomain.DraftParams{
		OwnerID: ownerID,
		Details: bookingDomain.Details{
			FullName:         strings.TrimSpace(req.FullName),
			PhoneNumber:      strings.TrimSpace(req.PhoneNumber),
			City:             req.City,
			State:            req.State,
			Country:          req.Country,
			Age:              req.Age,
			Gender:           req.Gender,
			EmergencyContact: strings.TrimSpace(req.EmergencyContact),
			UserMessage:      req.UserMessage,
		},
		Preference: bookingDomain.Preference{
			TimeStart: req.PreferredTimeStart,
			TimeEnd:   req.PreferredTimeEnd,
		},
		Mode:         bookingDomain.Mode(strings.ToUpper(req.Mode)),
		ConsentGiven: req.ConsentGiven,
	}

	if req.PreferredDate != "" {
		date, err := time.Parse("2006-01-02", req.PreferredDate)
		if err != nil {
			return params, fmt.Errorf("%w: preferred date must be YYYY-MM-DD", bookingDomain.ErrValidation)
		}
		params.Preference.Date = &date
	}
	if req.PreferredPeriod != "" {
		period := bookingDomain.Period(strings.ToUpper(req.PreferredPeriod))
		params.Preference.Period = &period
	}
	if req.PaymentMode != nil && *req.PaymentMode != "" {
		pm := bookingDomain.PaymentMode(strings.ToUpper(*req.PaymentMode))
		params.PaymentMode = &pm
	}
	return params, nil
}

func parseToken(token, kind string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, fmt.Errorf("%w: %s token is required", bookingDomain.ErrValidation, kind)
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid or expired %s link", bookingDomain.ErrNotFound, kind)
	}
	return id, nil
}

func wrapNotFound(err error, msg string) error {
	if errors.Is(err, bookingDomain.ErrNotFound) {
		return fmt.Errorf("%w: %s", bookingDomain.ErrNotFound, msg)
	}
	return err
}
