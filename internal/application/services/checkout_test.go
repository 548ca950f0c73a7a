package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application/services"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	svc     *services.CheckoutService
	gateway *MockGatewayClient
	store   *MockAbandonedStore
	poller  *services.ConfirmationPoller
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	gatewayMock := &MockGatewayClient{}
	store := &MockAbandonedStore{}
	poller := services.NewConfirmationPoller(gatewayMock, &MockHandoff{}, manualCheckConfig(), testLogger())
	payments := services.NewPaymentService(gatewayMock, poller, testLogger())
	coupons := services.NewCouponService(&MockOrderHistory{})
	telemetry := services.NewAbandonmentWriter(store, telemetryConfig(), testLogger())

	return &checkoutFixture{
		svc:     services.NewCheckoutService(coupons, payments, telemetry, testLogger()),
		gateway: gatewayMock,
		store:   store,
		poller:  poller,
	}
}

func TestCheckoutService_SessionLifecycle(t *testing.T) {
	f := newCheckoutFixture(t)

	session := f.svc.CreateSession(upsellProduct(), map[string]string{"ref": "landing"})
	require.NotEmpty(t, session.ID)

	found, err := f.svc.Session(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, found)

	f.svc.CloseSession(session.ID)
	_, err = f.svc.Session(session.ID)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSessionNotFound))
}

func TestCheckoutService_UpsellDecisionFlow(t *testing.T) {
	t.Run("accept includes the upsell in the charge", func(t *testing.T) {
		f := newCheckoutFixture(t)
		session := f.svc.CreateSession(upsellProduct(), nil)

		first, err := f.svc.InitiatePayment(context.Background(), session.ID)
		require.NoError(t, err)
		require.True(t, first.OfferPending)
		assert.Equal(t, 0, f.gateway.CreateCalls())

		second, err := f.svc.DecideOffer(context.Background(), session.ID, true)
		require.NoError(t, err)
		require.NotNil(t, second.Transaction)
		assert.Equal(t, domain.OfferAccepted, session.OfferState)
		assert.Equal(t, int64(15000), second.Transaction.Price.FinalCents)

		f.svc.CloseSession(session.ID)
	})

	t.Run("dismissal counts as declined", func(t *testing.T) {
		f := newCheckoutFixture(t)
		session := f.svc.CreateSession(upsellProduct(), nil)

		_, err := f.svc.InitiatePayment(context.Background(), session.ID)
		require.NoError(t, err)

		result, err := f.svc.DecideOffer(context.Background(), session.ID, false)
		require.NoError(t, err)
		require.NotNil(t, result.Transaction)
		assert.Equal(t, domain.OfferDeclined, session.OfferState)
		assert.Equal(t, int64(10000), result.Transaction.Price.FinalCents)

		f.svc.CloseSession(session.ID)
	})

	t.Run("decision cannot be revisited", func(t *testing.T) {
		f := newCheckoutFixture(t)
		session := f.svc.CreateSession(upsellProduct(), nil)

		_, err := f.svc.InitiatePayment(context.Background(), session.ID)
		require.NoError(t, err)
		_, err = f.svc.DecideOffer(context.Background(), session.ID, false)
		require.NoError(t, err)

		_, err = f.svc.DecideOffer(context.Background(), session.ID, true)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDecisionAlreadySet))

		f.svc.CloseSession(session.ID)
	})

	t.Run("no offer pause without an upsell", func(t *testing.T) {
		f := newCheckoutFixture(t)
		session := f.svc.CreateSession(plainProduct(), nil)

		result, err := f.svc.InitiatePayment(context.Background(), session.ID)
		require.NoError(t, err)
		assert.False(t, result.OfferPending)
		require.NotNil(t, result.Transaction)

		f.svc.CloseSession(session.ID)
	})
}

func TestCheckoutService_CouponDoesNotBlockCheckout(t *testing.T) {
	f := newCheckoutFixture(t)
	session := f.svc.CreateSession(plainProduct(), nil)

	_, err := f.svc.ApplyCoupon(context.Background(), session.ID, "NOPE")
	require.Error(t, err)
	assert.True(t, domain.IsCouponError(err))

	// The failed coupon leaves the session fully able to pay.
	result, err := f.svc.InitiatePayment(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, int64(5000), result.Transaction.Price.FinalCents)

	f.svc.CloseSession(session.ID)
}

func TestCheckoutService_BuyerInputSchedulesTelemetry(t *testing.T) {
	f := newCheckoutFixture(t)
	session := f.svc.CreateSession(upsellProduct(), nil)

	_, err := f.svc.UpdateBuyer(session.ID, domain.Buyer{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = f.svc.ToggleAddOn(session.ID, "addon-1", true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.store.Records()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(12000), f.store.Records()[0].AmountCents)

	f.svc.CloseSession(session.ID)
}

func TestCheckoutService_CloseSessionStopsPolling(t *testing.T) {
	f := newCheckoutFixture(t)
	session := f.svc.CreateSession(plainProduct(), nil)

	result, err := f.svc.InitiatePayment(context.Background(), session.ID)
	require.NoError(t, err)

	_, watched := f.poller.Snapshot(result.Transaction.ID)
	require.True(t, watched)

	f.svc.CloseSession(session.ID)

	_, watched = f.poller.Snapshot(result.Transaction.ID)
	assert.False(t, watched)
}

func TestCheckoutService_RemoveCouponRestoresPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	product := plainProduct()
	product.Coupons = []domain.Coupon{
		{Code: "SAVE10", Type: domain.DiscountPercentage, Value: 10, Active: true},
	}
	session := f.svc.CreateSession(product, nil)
	before := session.Price()

	_, err := f.svc.ApplyCoupon(context.Background(), session.ID, "SAVE10")
	require.NoError(t, err)
	require.NotEqual(t, before.FinalCents, session.Price().FinalCents)

	_, err = f.svc.RemoveCoupon(session.ID)
	require.NoError(t, err)
	assert.Equal(t, before, session.Price())

	f.svc.CloseSession(session.ID)
}
