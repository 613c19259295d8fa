//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mindsettler/service-booking/internal/application"
	bookingEvents "github.com/mindsettler/service-booking/internal/events"
	"github.com/mindsettler/service-booking/internal/notification"
	"github.com/mindsettler/service-booking/internal/platform/database"
	"github.com/mindsettler/service-booking/internal/platform/kafka"
	"github.com/mindsettler/service-booking/internal/repository"
	"github.com/mindsettler/service-booking/internal/throttle"
	"github.com/mindsettler/service-booking/migrations"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Service         *application.BookingService
	Consumer        *bookingEvents.PaymentEventConsumer
	Directory       *application.DirectoryService
	Users           *repository.GormUserRepository
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the SQL
// migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pgConfig := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_booking",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(pgConfig, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(pgConfig.DatabaseURL(), migrations.FS, ".", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, "booking.events", "payment.events")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires up the full booking service stack with a log-only sender.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewGormBookingRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	notificationRepo := repository.NewGormNotificationRecordRepository(db)

	renderer, err := notification.NewRenderer()
	require.NoError(t, err)
	dispatcher := notification.NewDispatcher(renderer, notification.NewLogSender(logger), notificationRepo, logger)

	directory := application.NewDirectoryService(
		repository.NewGormProviderRepository(db),
		repository.NewGormCorporateRepository(db),
		nil,
		logger,
	)

	producer := kafka.NewProducer(brokers, logger)
	bookingSvc := application.NewBookingService(application.ServiceDependencies{
		Bookings:          bookingRepo,
		Users:             userRepo,
		Directory:         directory,
		Notifier:          dispatcher,
		Producer:          producer,
		Limiter:           throttle.NoopLimiter{},
		FrontendURL:       "http://localhost:3000",
		ResendWindow:      time.Minute,
		StatusEmailWindow: time.Minute,
		Logger:            logger,
	})

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewPaymentEventConsumer(brokers, groupID, bookingSvc, logger)

	return &bookingStack{
		Service:         bookingSvc,
		Consumer:        consumer,
		Directory:       directory,
		Users:           userRepo,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedPaymentPendingBooking inserts an approved online booking awaiting payment.
func seedPaymentPendingBooking(t *testing.T, db *gorm.DB, users *repository.GormUserRepository, bookingID uuid.UUID, reference string) {
	t.Helper()
	user, err := users.GetOrCreate(context.Background(), fmt.Sprintf("int-%s@example.com", bookingID.String()[:8]))
	require.NoError(t, err)

	now := time.Now().UTC()
	submitted := now.Add(-2 * time.Hour)
	approved := now.Add(-time.Hour)
	requested := now.Add(-10 * time.Minute)
	slotStart := now.Add(72 * time.Hour).Truncate(time.Hour)
	slotEnd := slotStart.Add(time.Hour)
	paymentMode := "ONLINE"

	model := repository.BookingModel{
		ID:                 bookingID,
		AcknowledgementID:  "MS-" + uuid.New().String()[:6],
		OwnerID:            user.ID(),
		Status:             "PAYMENT_PENDING",
		Details:            []byte(`{"full_name":"Integration User","phone_number":"9876543210","country":"India"}`),
		Preference:         []byte(`{}`),
		Mode:               "ONLINE",
		PaymentMode:        &paymentMode,
		ApprovedSlotStart:  &slotStart,
		ApprovedSlotEnd:    &slotEnd,
		Amount:             decimal.NewNullDecimal(decimal.NewFromInt(500)),
		PaymentReference:   &reference,
		EmailVerified:      true,
		ConsentGiven:       true,
		ApprovalNotified:   true,
		EmailVerifiedAt:    &submitted,
		SubmittedAt:        &submitted,
		ApprovedAt:         &approved,
		PaymentRequestedAt: &requested,
		Version:            4,
		CreatedAt:          submitted,
		UpdatedAt:          requested,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed booking")
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		err := db.Where("id = ?", bookingID).First(&model).Error
		if err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type
// for the given subject.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
