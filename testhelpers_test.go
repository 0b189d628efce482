//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/forkline-eats/service-promo/internal/adapter"
	"github.com/forkline-eats/service-promo/internal/application"
	contracts "github.com/forkline-eats/service-promo/internal/contracts/events"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
	promoEvents "github.com/forkline-eats/service-promo/internal/events"
	"github.com/forkline-eats/service-promo/internal/platform/database"
	"github.com/forkline-eats/service-promo/internal/platform/kafka"
	"github.com/forkline-eats/service-promo/internal/repository"
	"github.com/forkline-eats/service-promo/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// promoStack holds wired-up promo service components.
type promoStack struct {
	Engine          *application.DiscountEngine
	Checkout        *application.CheckoutService
	Promos          *repository.GormPromoCodeRepository
	Consumer        *promoEvents.OrderEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the
// SQL migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_promo",
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

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_promo",
		SSLMode:  "disable",
	}
	logger := zap.NewNop()

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, contracts.TopicOrderEvents, contracts.TopicPromoEvents)

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

// setupPromoStack wires up the full promo service stack.
func setupPromoStack(t *testing.T, db *gorm.DB, brokers []string) *promoStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	promos := repository.NewGormPromoCodeRepository(db)
	ledger := repository.NewGormUsageLedger(db)
	restaurants := repository.NewGormRestaurantRepository(db)
	engine := application.NewDiscountEngine(promos, ledger, repository.NewGormTransactor(db), logger)

	producer := kafka.NewProducer(brokers, logger)
	runner := saga.NewCheckoutSagaService(adapter.NewMockPaymentGateway(logger), engine, producer, logger)
	checkout := application.NewCheckoutService(engine, application.NewDeliveryService(restaurants, logger), runner, "PLN", logger)

	groupID := fmt.Sprintf("test-promo-%s", uuid.New().String()[:8])
	consumer := promoEvents.NewOrderEventConsumer(brokers, groupID, engine, logger)

	return &promoStack{
		Engine:          engine,
		Checkout:        checkout,
		Promos:          promos,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedRestaurant inserts a restaurant in central Warsaw with a 10 km range.
func seedRestaurant(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	model := repository.RestaurantModel{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		Name:            "Integration Pizzeria",
		Latitude:        52.2297,
		Longitude:       21.0122,
		DeliveryRangeKm: 10,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed restaurant")
	return model.ID
}

// seedPromo stores an active 20% code with the given total usage limit.
func seedPromo(t *testing.T, repo promo.PromoCodeRepository, restaurantID uuid.UUID, code string, totalLimit *int) *promo.PromoCode {
	t.Helper()
	now := time.Now().UTC()
	p, err := promo.NewPromoCode(restaurantID, uuid.New(), promo.Rules{
		Code:            code,
		DiscountType:    promo.DiscountTypePercentage,
		DiscountValue:   decimal.NewFromInt(20),
		TotalUsageLimit: totalLimit,
		IsActive:        true,
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), p), "failed to seed promo code")
	return p
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

// waitForUsedCount polls promo_codes until used_count matches.
func waitForUsedCount(t *testing.T, db *gorm.DB, promoCodeID uuid.UUID, expected int, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		var model repository.PromoCodeModel
		if err := db.Where("id = ?", promoCodeID).First(&model).Error; err != nil {
			return false
		}
		return model.UsedCount == expected
	}, timeout, 200*time.Millisecond, "used_count did not reach %d", expected)
}

// countUsages returns the number of ledger rows for a promo code.
func countUsages(t *testing.T, db *gorm.DB, promoCodeID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&repository.PromoUsageModel{}).Where("promo_code_id = ?", promoCodeID).Count(&n).Error)
	return n
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
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
		if ce.Type == expectedType {
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
