//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/contracts"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/repository"
)

// TestPaymentCompleted_ConfirmsBooking verifies that a payment.completed event on
// payment.events confirms the booking holding the reference, latches the confirmation
// email and publishes booking.confirmed.
func TestPaymentCompleted_ConfirmsBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	bookingID := uuid.New()
	reference := "PAY-INT" + uuid.New().String()[:8]
	seedPaymentPendingBooking(t, infra.DB, stack.Users, bookingID, reference)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := contracts.PaymentCompletedEvent{
		PaymentReference: reference,
		Amount:           decimal.NewFromInt(500),
		Provider:         "test",
		OccurredAt:       time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, contracts.TopicPaymentEvents,
		"service-payment", contracts.PaymentCompleted, evt)

	model := waitForBookingStatus(t, infra.DB, bookingID, "CONFIRMED", 15*time.Second)
	assert.NotNil(t, model.ConfirmedAt)
	assert.Equal(t, int64(5), model.Version)

	require.Eventually(t, func() bool {
		var m repository.BookingModel
		if err := infra.DB.Where("id = ?", bookingID).First(&m).Error; err != nil {
			return false
		}
		return m.ConfirmationNotified
	}, 10*time.Second, 200*time.Millisecond, "confirmation flag was not latched")

	var records []repository.NotificationRecordModel
	require.NoError(t, infra.DB.Where("booking_id = ? AND template = ?", bookingID, "booking_confirmed").Find(&records).Error)
	assert.Len(t, records, 1)

	ce := consumeOneEvent(t, infra.KafkaBrokers, contracts.TopicBookingEvents,
		contracts.BookingConfirmed, bookingID.String(), 15*time.Second)

	var confirmed contracts.BookingLifecycleEvent
	require.NoError(t, ce.ParseData(&confirmed))
	assert.Equal(t, bookingID, confirmed.BookingID)
	assert.Equal(t, "PAYMENT_PENDING", confirmed.FromStatus)
	assert.Equal(t, "CONFIRMED", confirmed.ToStatus)
	assert.Equal(t, reference, confirmed.PaymentReference)
}

// TestPaymentFailed_MarksBookingFailed verifies that payment.failed moves the booking
// to PAYMENT_FAILED.
func TestPaymentFailed_MarksBookingFailed(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	bookingID := uuid.New()
	reference := "PAY-INT" + uuid.New().String()[:8]
	seedPaymentPendingBooking(t, infra.DB, stack.Users, bookingID, reference)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second)

	evt := contracts.PaymentFailedEvent{
		PaymentReference: reference,
		Reason:           "card declined",
		OccurredAt:       time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, contracts.TopicPaymentEvents,
		"service-payment", contracts.PaymentFailed, evt)

	model := waitForBookingStatus(t, infra.DB, bookingID, "PAYMENT_FAILED", 15*time.Second)
	assert.NotNil(t, model.PaymentFailedAt)
}

// TestBookingLifecycle_DraftToConfirmed drives one booking through intake, verification,
// approval and payment against a real database.
func TestBookingLifecycle_DraftToConfirmed(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	ctx := context.Background()

	email := "lifecycle-" + uuid.New().String()[:8] + "@example.com"
	draft, err := stack.Service.CreateDraft(ctx, application.CreateDraftRequest{
		Email:        email,
		ConsentGiven: true,
		FullName:     "Lifecycle User",
		PhoneNumber:  "9876543210",
		Mode:         "ONLINE",
	})
	require.NoError(t, err)
	assert.Equal(t, application.MsgDraftCreated, draft.Message)

	var model repository.BookingModel
	require.NoError(t, infra.DB.Where("status = ?", "DRAFT").Order("created_at DESC").First(&model).Error)
	require.NotNil(t, model.EmailVerificationToken)

	verified, err := stack.Service.VerifyEmail(ctx, model.EmailVerificationToken.String())
	require.NoError(t, err)
	assert.Equal(t, "PENDING", verified.Status)

	// A second intake for the same address re-sends the link instead of creating a draft.
	_, err = stack.Service.CreateDraft(ctx, application.CreateDraftRequest{
		Email:        email,
		ConsentGiven: true,
		FullName:     "Lifecycle User",
		PhoneNumber:  "9876543210",
		Mode:         "ONLINE",
	})
	assert.ErrorIs(t, err, application.ErrThrottled)

	counselor, err := stack.Directory.CreateProvider(ctx, application.CreateProviderRequest{
		FullName:        "Dr. Meera Iyer",
		Email:           "meera@mindsettler.in",
		Specialization:  "anxiety",
		ExperienceYears: 8,
	})
	require.NoError(t, err)

	amount := decimal.NewFromInt(500)
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	approval, err := stack.Service.ApproveBooking(ctx, model.ID, application.ApproveBookingRequest{
		Start:      start,
		End:        start.Add(time.Hour),
		Amount:     &amount,
		ProviderID: &counselor.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approval.Booking.Status)

	payment, err := stack.Service.InitiatePayment(ctx, model.AcknowledgementID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", payment.Amount)

	result, err := stack.Service.CompletePayment(ctx, payment.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", result.Status)

	status, err := stack.Service.CheckStatus(ctx, model.AcknowledgementID)
	require.NoError(t, err)
	assert.Equal(t, []string{"DRAFT", "PENDING", "APPROVED", "PAYMENT_PENDING", "CONFIRMED"}, status.Timeline)
	assert.NotNil(t, status.AddToCalendarURL)
}

// TestRepositoryUpdate_StaleVersionConflicts verifies the version check on update.
func TestRepositoryUpdate_StaleVersionConflicts(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	ctx := context.Background()

	bookingID := uuid.New()
	seedPaymentPendingBooking(t, infra.DB, stack.Users, bookingID, "PAY-INT"+uuid.New().String()[:8])

	repo := repository.NewGormBookingRepository(infra.DB)
	first, err := repo.FindByID(ctx, bookingID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, bookingID)
	require.NoError(t, err)

	require.NoError(t, first.Confirm(time.Now()))
	first.IncrementVersion()
	require.NoError(t, repo.Update(ctx, first))

	_, err = second.FailPayment(time.Now())
	require.NoError(t, err)
	second.IncrementVersion()
	assert.ErrorIs(t, repo.Update(ctx, second), bookingDomain.ErrConflict)
}
