package postgres_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/persistence/postgres"
)

type PostgresSuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	db        *postgres.DB
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	cfg := &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Name:            "testdb",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}

	s.Require().NoError(postgres.Migrate(cfg))

	db, err := postgres.Connect(ctx, cfg, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.db.Pool.Exec(context.Background(),
		"TRUNCATE TABLE abandoned_checkouts, orders RESTART IDENTITY CASCADE;")
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestAbandonedUpsertIsKeyedByProductAndEmail() {
	ctx := context.Background()
	repo := postgres.NewAbandonedSessionRepository(s.db)

	first, err := repo.Upsert(ctx, application.AbandonedSession{
		ProductID:   "prod-1",
		BuyerName:   "Ana",
		BuyerEmail:  "ana@example.com",
		BuyerPhone:  "+5511999990000",
		AmountCents: 10000,
		Tracking:    map[string]string{"utm_source": "ads"},
	})
	s.Require().NoError(err)
	s.NotEmpty(first)

	// Same buyer and product again: the record is updated, not duplicated.
	second, err := repo.Upsert(ctx, application.AbandonedSession{
		ProductID:   "prod-1",
		BuyerName:   "Ana Silva",
		BuyerEmail:  "ana@example.com",
		AmountCents: 12000,
	})
	s.Require().NoError(err)
	s.Equal(first, second)

	var count int
	var amount int64
	err = s.db.Pool.QueryRow(ctx,
		"SELECT count(*), max(amount_cents) FROM abandoned_checkouts").Scan(&count, &amount)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Equal(int64(12000), amount)
}

func (s *PostgresSuite) TestAbandonedUpsertHandlesNilTracking() {
	repo := postgres.NewAbandonedSessionRepository(s.db)

	id, err := repo.Upsert(context.Background(), application.AbandonedSession{
		ProductID:   "prod-2",
		BuyerEmail:  "b@example.com",
		AmountCents: 5000,
	})
	s.Require().NoError(err)
	s.NotEmpty(id)
}

func (s *PostgresSuite) TestCouponUsedSeesCompletedOrders() {
	ctx := context.Background()
	repo := postgres.NewOrderHistoryRepository(s.db)

	used, err := repo.CouponUsed(ctx, "prod-1", "ana@example.com", "SAVE10")
	s.Require().NoError(err)
	s.False(used)

	err = repo.PaymentConfirmed(ctx, &domain.Transaction{
		ID:         "tx-1",
		SessionID:  "sess-1",
		ProductID:  "prod-1",
		BuyerEmail: "ana@example.com",
		CouponCode: "SAVE10",
		Price:      domain.PriceBreakdown{FinalCents: 9000},
		Status:     domain.StatusPaid,
	})
	s.Require().NoError(err)

	// Case differences in email and code still count as the same usage.
	used, err = repo.CouponUsed(ctx, "prod-1", "ANA@example.com", "save10")
	s.Require().NoError(err)
	s.True(used)

	// A different buyer is free to use the code.
	used, err = repo.CouponUsed(ctx, "prod-1", "other@example.com", "SAVE10")
	s.Require().NoError(err)
	s.False(used)
}

func (s *PostgresSuite) TestCouponRedemptionsCountsAcrossBuyers() {
	ctx := context.Background()
	repo := postgres.NewOrderHistoryRepository(s.db)

	redemptions, err := repo.CouponRedemptions(ctx, "prod-1", "LAUNCH")
	s.Require().NoError(err)
	s.Equal(0, redemptions)

	for i, email := range []string{"ana@example.com", "bruno@example.com"} {
		err = repo.PaymentConfirmed(ctx, &domain.Transaction{
			ID:         "tx-launch-" + email,
			SessionID:  "sess-" + email,
			ProductID:  "prod-1",
			BuyerEmail: email,
			CouponCode: "LAUNCH",
			Price:      domain.PriceBreakdown{FinalCents: int64(9000 + i)},
			Status:     domain.StatusPaid,
		})
		s.Require().NoError(err)
	}

	// Codes compare case-insensitively, matching the reuse check.
	redemptions, err = repo.CouponRedemptions(ctx, "prod-1", "launch")
	s.Require().NoError(err)
	s.Equal(2, redemptions)

	// Other products and codes are unaffected.
	redemptions, err = repo.CouponRedemptions(ctx, "prod-2", "LAUNCH")
	s.Require().NoError(err)
	s.Equal(0, redemptions)
}

func (s *PostgresSuite) TestPaymentConfirmedIsIdempotent() {
	ctx := context.Background()
	repo := postgres.NewOrderHistoryRepository(s.db)

	tx := &domain.Transaction{
		ID:         "tx-dup",
		SessionID:  "sess-1",
		ProductID:  "prod-1",
		BuyerEmail: "ana@example.com",
		Price:      domain.PriceBreakdown{FinalCents: 10000},
		Status:     domain.StatusPaid,
	}

	s.Require().NoError(repo.PaymentConfirmed(ctx, tx))
	s.Require().NoError(repo.PaymentConfirmed(ctx, tx))

	var count int
	err := s.db.Pool.QueryRow(ctx,
		"SELECT count(*) FROM orders WHERE transaction_id = 'tx-dup'").Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresSuite) TestOrdersWithoutCouponStoreNull() {
	ctx := context.Background()
	repo := postgres.NewOrderHistoryRepository(s.db)

	err := repo.PaymentConfirmed(ctx, &domain.Transaction{
		ID:         "tx-nocoupon",
		SessionID:  "sess-1",
		ProductID:  "prod-1",
		BuyerEmail: "ana@example.com",
		Price:      domain.PriceBreakdown{FinalCents: 10000},
		Status:     domain.StatusPaid,
	})
	s.Require().NoError(err)

	var code *string
	err = s.db.Pool.QueryRow(ctx,
		"SELECT coupon_code FROM orders WHERE transaction_id = 'tx-nocoupon'").Scan(&code)
	s.Require().NoError(err)
	s.Nil(code)
}
