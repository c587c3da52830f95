package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/infra"
	redisinfra "storefront-orders/internal/infra/redis"
	"storefront-orders/internal/mocks"
	"storefront-orders/internal/repository"
	repomysql "storefront-orders/internal/repository/mysql"
	"storefront-orders/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Amounts are paisa: 500 PKR is 50000.
var testSettings = domain.StoreSettings{
	BaseCurrency:          "PKR",
	DisplayCurrency:       "PKR",
	ExchangeRate:          1,
	FreeShippingThreshold: 100000,
	StandardShippingCost:  10000,
	ExpressShippingCost:   25000,
	TaxRatePercent:        10,
}

type fixture struct {
	svc      *OrderService
	db       *gorm.DB
	gateway  *mocks.MockPaymentGateway
	notifier *mocks.RecordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	gw := new(mocks.MockPaymentGateway)
	return newFixtureWith(t, db, gw)
}

func newFixtureWith(t *testing.T, db *gorm.DB, gw infra.PaymentGatewayInterface) *fixture {
	t.Helper()
	notifier := &mocks.RecordingNotifier{}
	svc := NewOrderService(
		repomysql.NewUnitOfWork(db),
		repomysql.NewOrderRepository(db),
		NewSettingsProvider(repomysql.NewSettingsRepository(db), testSettings),
		NewInventory(3, notifier),
		NewPaymentVerifier(gw, 100*time.Millisecond),
		notifier,
		Options{PaymentSuccessStatus: "succeeded", PaymentTolerance: 100},
	)
	f := &fixture{svc: svc, db: db, notifier: notifier}
	if m, ok := gw.(*mocks.MockPaymentGateway); ok {
		f.gateway = m
	}
	return f
}

func codRequest(customerID uint64) CheckoutRequest {
	return CheckoutRequest{
		CustomerID:      customerID,
		ShippingAddress: testutil.Address(),
		ShippingMethod:  domain.ShippingStandard,
		PaymentMethod:   domain.PaymentCOD,
	}
}

func cardRequest(customerID uint64, intentID string) CheckoutRequest {
	req := codRequest(customerID)
	req.PaymentMethod = domain.PaymentCard
	req.PaymentIntentID = intentID
	return req
}

func cartLen(t *testing.T, db *gorm.DB, customerID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.CartItem{}).Where("customer_id = ?", customerID).Count(&n).Error)
	return n
}

func orderCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&n).Error)
	return n
}

func TestOrderService_CreateOrder_COD(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 2)

	order, err := f.svc.CreateOrder(context.Background(), codRequest(7))
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{16}$`, order.OrderNumber)
	assert.Equal(t, int64(100000), order.Subtotal)
	assert.Equal(t, int64(0), order.ShippingCost)
	assert.Equal(t, int64(10000), order.Tax)
	assert.Equal(t, int64(110000), order.Total)
	assert.True(t, order.CheckAmounts())
	assert.Equal(t, domain.StatusPending, order.OrderStatus)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "PKR", order.Currency)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(100000), order.Items[0].LineTotal)

	assert.Equal(t, int64(3), testutil.Stock(t, f.db, p.ID))
	assert.Zero(t, cartLen(t, f.db, 7))

	var stats domain.CustomerStats
	require.NoError(t, f.db.First(&stats, "customer_id = ?", 7).Error)
	assert.Equal(t, int64(1), stats.OrderCount)
	assert.Equal(t, int64(110000), stats.LifetimeSpend)

	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventLowStock}, f.notifier.Types())
}

func TestOrderService_CreateOrder_ShippingBelowThreshold(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Scarf", 20000, 10)
	testutil.AddToCart(t, f.db, 7, p, 1)

	req := codRequest(7)
	req.ShippingMethod = domain.ShippingExpress
	order, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(20000), order.Subtotal)
	assert.Equal(t, int64(25000), order.ShippingCost)
	assert.Equal(t, int64(2000), order.Tax)
	assert.Equal(t, int64(47000), order.Total)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 1)
	testutil.AddToCart(t, f.db, 7, p, 2)

	order, err := f.svc.CreateOrder(context.Background(), codRequest(7))
	assert.Nil(t, order)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Kurta", stockErr.ProductName)
	assert.Equal(t, int64(2), stockErr.Requested)
	assert.Equal(t, int64(1), stockErr.Available)

	assert.Equal(t, int64(1), testutil.Stock(t, f.db, p.ID))
	assert.Zero(t, orderCount(t, f.db))
	assert.Equal(t, int64(1), cartLen(t, f.db, 7))
	assert.Empty(t, f.notifier.Types())
}

func TestOrderService_CreateOrder_PartialReservationRolledBack(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	b := testutil.SeedProduct(t, f.db, "Dupatta", 10000, 0)
	testutil.AddToCart(t, f.db, 7, a, 2)
	testutil.AddToCart(t, f.db, 7, b, 1)

	_, err := f.svc.CreateOrder(context.Background(), codRequest(7))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(5), testutil.Stock(t, f.db, a.ID))
	assert.Equal(t, int64(0), testutil.Stock(t, f.db, b.ID))
	assert.Zero(t, orderCount(t, f.db))
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CheckoutRequest)
		cart   bool
	}{
		{name: "empty cart", mutate: func(r *CheckoutRequest) {}},
		{name: "missing customer", mutate: func(r *CheckoutRequest) { r.CustomerID = 0 }, cart: true},
		{name: "unknown payment method", mutate: func(r *CheckoutRequest) { r.PaymentMethod = "barter" }, cart: true},
		{name: "unknown shipping method", mutate: func(r *CheckoutRequest) { r.ShippingMethod = "drone" }, cart: true},
		{name: "card without intent", mutate: func(r *CheckoutRequest) { r.PaymentMethod = domain.PaymentCard }, cart: true},
		{name: "address missing city", mutate: func(r *CheckoutRequest) { r.ShippingAddress.City = "" }, cart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
			if tt.cart {
				testutil.AddToCart(t, f.db, 7, p, 1)
			}
			req := codRequest(7)
			tt.mutate(&req)

			order, err := f.svc.CreateOrder(context.Background(), req)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, int64(5), testutil.Stock(t, f.db, p.ID))
			assert.Zero(t, orderCount(t, f.db))
		})
	}
}

func TestOrderService_CreateOrder_Card(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 2)

	f.gateway.On("RetrieveIntent", mock.Anything, "pi_123").Return(&infra.PaymentIntent{
		ID: "pi_123", Status: "succeeded", Amount: 110000, Currency: "pkr",
	}, nil).Once()

	order, err := f.svc.CreateOrder(context.Background(), cardRequest(7, "pi_123"))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, "pi_123", order.PaymentIntentID)
	assert.Equal(t, int64(3), testutil.Stock(t, f.db, p.ID))
	f.gateway.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PaymentFailures(t *testing.T) {
	tests := []struct {
		name    string
		intent  *infra.PaymentIntent
		gwErr   error
		wantErr error
	}{
		{
			name:    "amount short",
			intent:  &infra.PaymentIntent{ID: "pi_1", Status: "succeeded", Amount: 105000, Currency: "PKR"},
			wantErr: domain.ErrPaymentMismatch,
		},
		{
			name:    "not succeeded",
			intent:  &infra.PaymentIntent{ID: "pi_1", Status: "requires_payment_method", Amount: 110000, Currency: "PKR"},
			wantErr: domain.ErrPaymentMismatch,
		},
		{
			name:    "wrong currency",
			intent:  &infra.PaymentIntent{ID: "pi_1", Status: "succeeded", Amount: 110000, Currency: "USD"},
			wantErr: domain.ErrPaymentMismatch,
		},
		{
			name:    "unknown intent",
			gwErr:   infra.ErrIntentNotFound,
			wantErr: domain.ErrPaymentMismatch,
		},
		{
			name:    "gateway down",
			gwErr:   &infra.GatewayError{StatusCode: 502},
			wantErr: domain.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
			testutil.AddToCart(t, f.db, 7, p, 2)

			if tt.intent != nil {
				f.gateway.On("RetrieveIntent", mock.Anything, "pi_1").Return(tt.intent, nil)
			} else {
				f.gateway.On("RetrieveIntent", mock.Anything, "pi_1").Return(nil, tt.gwErr)
			}

			order, err := f.svc.CreateOrder(context.Background(), cardRequest(7, "pi_1"))
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, int64(5), testutil.Stock(t, f.db, p.ID))
			assert.Zero(t, orderCount(t, f.db))
			assert.Equal(t, int64(1), cartLen(t, f.db, 7))
			assert.Empty(t, f.notifier.Types())
		})
	}
}

type stalledGateway struct{}

func (stalledGateway) RetrieveIntent(ctx context.Context, _ string) (*infra.PaymentIntent, error) {
	<-ctx.Done()
	return nil, &infra.GatewayError{Err: ctx.Err()}
}

func TestOrderService_CreateOrder_GatewayTimeout(t *testing.T) {
	db := testutil.NewDB(t)
	f := newFixtureWith(t, db, stalledGateway{})
	p := testutil.SeedProduct(t, db, "Kurta", 50000, 5)
	testutil.AddToCart(t, db, 7, p, 2)

	start := time.Now()
	_, err := f.svc.CreateOrder(context.Background(), cardRequest(7, "pi_slow"))
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, int64(5), testutil.Stock(t, db, p.ID))
	assert.Zero(t, orderCount(t, db))
}

func TestOrderService_CreateOrder_CallerCancellationIgnored(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	order, err := f.svc.CreateOrder(ctx, codRequest(7))
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestOrderService_CreateOrder_ConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Limited Shawl", 30000, 1)

	const buyers = 8
	for c := uint64(1); c <= buyers; c++ {
		testutil.AddToCart(t, f.db, c, p, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		outOfStk  int
	)
	for c := uint64(1); c <= buyers; c++ {
		wg.Add(1)
		go func(customerID uint64) {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), codRequest(customerID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientStock):
				outOfStk++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, outOfStk)
	assert.Equal(t, int64(0), testutil.Stock(t, f.db, p.ID))
	assert.Equal(t, int64(1), orderCount(t, f.db))
	assert.Contains(t, f.notifier.Types(), domain.EventOutOfStock)
}

func TestOrderService_CreateOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 2)

	req := codRequest(7)
	req.IdempotencyKey = "chk-1"

	first, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	second, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	assert.Equal(t, int64(3), testutil.Stock(t, f.db, p.ID))
	assert.Equal(t, int64(1), orderCount(t, f.db))
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventLowStock}, f.notifier.Types())

	changed := req
	changed.ShippingMethod = domain.ShippingExpress
	_, err = f.svc.CreateOrder(context.Background(), changed)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrderService_CreateOrder_SameKeyOtherCustomer(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 1)
	testutil.AddToCart(t, f.db, 8, p, 1)

	a := codRequest(7)
	a.IdempotencyKey = "shared"
	b := codRequest(8)
	b.IdempotencyKey = "shared"

	oa, err := f.svc.CreateOrder(context.Background(), a)
	require.NoError(t, err)
	ob, err := f.svc.CreateOrder(context.Background(), b)
	require.NoError(t, err)
	assert.NotEqual(t, oa.ID, ob.ID)
}

func newRedisIdempotency(t *testing.T) (*redisinfra.IdempotencyStore, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisinfra.NewIdempotencyStore(client, time.Hour), client
}

func TestOrderService_CreateOrder_RedisIdempotency(t *testing.T) {
	f := newFixture(t)
	store, _ := newRedisIdempotency(t)
	f.svc.SetIdempotencyStore(store)

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 1)

	req := codRequest(7)
	req.IdempotencyKey = "chk-redis"

	first, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	rec, acquired, err := store.Acquire(context.Background(), 7, "chk-redis", req.fingerprint())
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, first.ID, rec.OrderID)

	second, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(4), testutil.Stock(t, f.db, p.ID))
}

func TestOrderService_CreateOrder_InFlight(t *testing.T) {
	f := newFixture(t)
	store, _ := newRedisIdempotency(t)
	f.svc.SetIdempotencyStore(store)

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 1)

	req := codRequest(7)
	req.IdempotencyKey = "chk-busy"

	_, acquired, err := store.Acquire(context.Background(), 7, "chk-busy", req.fingerprint())
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrCheckoutInProgress)

	other := req
	other.PaymentIntentID = ""
	other.ShippingMethod = domain.ShippingExpress
	_, err = f.svc.CreateOrder(context.Background(), other)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, int64(5), testutil.Stock(t, f.db, p.ID))
}

func TestOrderService_CreateOrder_FailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	store, _ := newRedisIdempotency(t)
	f.svc.SetIdempotencyStore(store)

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 1)
	testutil.AddToCart(t, f.db, 7, p, 2)

	req := codRequest(7)
	req.IdempotencyKey = "chk-retry"

	_, err := f.svc.CreateOrder(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, acquired, err := store.Acquire(context.Background(), 7, "chk-retry", req.fingerprint())
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestOrderService_CreateOrder_FailedPaymentReleasesKey(t *testing.T) {
	f := newFixture(t)
	store, _ := newRedisIdempotency(t)
	f.svc.SetIdempotencyStore(store)

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 5)
	testutil.AddToCart(t, f.db, 7, p, 2)
	f.gateway.On("RetrieveIntent", mock.Anything, "pi_short").Return(&infra.PaymentIntent{
		ID: "pi_short", Status: "succeeded", Amount: 1000, Currency: "PKR",
	}, nil).Once()

	req := cardRequest(7, "pi_short")
	req.IdempotencyKey = "chk-card"

	var (
		order *domain.Order
		err   error
	)
	require.NotPanics(t, func() {
		order, err = f.svc.CreateOrder(context.Background(), req)
	})
	assert.Nil(t, order)
	require.ErrorIs(t, err, domain.ErrPaymentMismatch)
	assert.Equal(t, int64(5), testutil.Stock(t, f.db, p.ID))

	rec, acquired, err := store.Acquire(context.Background(), 7, "chk-card", req.fingerprint())
	require.NoError(t, err)
	assert.True(t, acquired, "key still held by %+v", rec)
}

// gatedOrders parks the first idempotency lookup until release is closed.
type gatedOrders struct {
	repository.OrderRepository
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (g *gatedOrders) FindByIdempotencyKey(ctx context.Context, customerID uint64, key string) (*domain.Order, error) {
	o, err := g.OrderRepository.FindByIdempotencyKey(ctx, customerID, key)
	g.once.Do(func() {
		close(g.parked)
		<-g.release
	})
	return o, err
}

func TestOrderService_CreateOrder_RetryOvertakenByFirstAttempt(t *testing.T) {
	db := testutil.NewDB(t)
	notifier := &mocks.RecordingNotifier{}
	orders := &gatedOrders{
		OrderRepository: repomysql.NewOrderRepository(db),
		parked:          make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc := NewOrderService(
		repomysql.NewUnitOfWork(db),
		orders,
		NewSettingsProvider(repomysql.NewSettingsRepository(db), testSettings),
		NewInventory(3, notifier),
		NewPaymentVerifier(new(mocks.MockPaymentGateway), 100*time.Millisecond),
		notifier,
		Options{PaymentSuccessStatus: "succeeded", PaymentTolerance: 100},
	)

	p := testutil.SeedProduct(t, db, "Kurta", 50000, 1)
	testutil.AddToCart(t, db, 7, p, 1)
	req := codRequest(7)
	req.IdempotencyKey = "chk-race"

	type result struct {
		order *domain.Order
		err   error
	}
	retry := make(chan result, 1)
	go func() {
		o, err := svc.CreateOrder(context.Background(), req)
		retry <- result{o, err}
	}()

	// The retry has found no prior order and is about to start its own checkout.
	<-orders.parked
	first, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	close(orders.release)

	got := <-retry
	require.NoError(t, got.err)
	assert.Equal(t, first.ID, got.order.ID)
	assert.Equal(t, int64(0), testutil.Stock(t, db, p.ID))
	assert.Equal(t, int64(1), orderCount(t, db))
}

func placeOrder(t *testing.T, f *fixture, customerID uint64, p *domain.Product, qty int64) *domain.Order {
	t.Helper()
	testutil.AddToCart(t, f.db, customerID, p, qty)
	o, err := f.svc.CreateOrder(context.Background(), codRequest(customerID))
	require.NoError(t, err)
	return o
}

func TestOrderService_CancelOrder(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	o := placeOrder(t, f, 7, p, 2)
	require.Equal(t, int64(8), testutil.Stock(t, f.db, p.ID))

	cancelled, err := f.svc.CancelOrder(context.Background(), o.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.OrderStatus)
	assert.Equal(t, int64(10), testutil.Stock(t, f.db, p.ID))

	_, err = f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusProcessing, domain.Admin())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.CancelOrder(context.Background(), o.ID, 7)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, int64(10), testutil.Stock(t, f.db, p.ID))

	types := f.notifier.Types()
	assert.Contains(t, types, domain.EventOrderStatusChanged)
	assert.Contains(t, types, domain.EventOrderCancelled)
}

func TestOrderService_CancelOrder_RestoreFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	b := testutil.SeedProduct(t, f.db, "Shawl", 30000, 10)
	testutil.AddToCart(t, f.db, 7, a, 2)
	testutil.AddToCart(t, f.db, 7, b, 1)
	o, err := f.svc.CreateOrder(context.Background(), codRequest(7))
	require.NoError(t, err)
	require.Equal(t, int64(8), testutil.Stock(t, f.db, a.ID))

	// a is restored before b, so the failure lands after a write in the same unit of work.
	require.NoError(t, f.db.Delete(&domain.Product{}, b.ID).Error)
	before := f.notifier.Types()

	_, err = f.svc.CancelOrder(context.Background(), o.ID, 7)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.GetOrder(context.Background(), o.ID, domain.Customer(7))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.OrderStatus)
	assert.Equal(t, int64(8), testutil.Stock(t, f.db, a.ID))
	assert.Equal(t, before, f.notifier.Types())
}

func TestOrderService_CancelOrder_Rules(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)

	t.Run("other customer sees not found", func(t *testing.T) {
		o := placeOrder(t, f, 7, p, 1)
		_, err := f.svc.CancelOrder(context.Background(), o.ID, 8)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("customer cannot cancel shipped order", func(t *testing.T) {
		o := placeOrder(t, f, 7, p, 1)
		_, err := f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusShipped, domain.Admin())
		require.NoError(t, err)

		stock := testutil.Stock(t, f.db, p.ID)
		_, err = f.svc.CancelOrder(context.Background(), o.ID, 7)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, stock, testutil.Stock(t, f.db, p.ID))
	})

	t.Run("admin cancels shipped order and restocks", func(t *testing.T) {
		o := placeOrder(t, f, 7, p, 2)
		_, err := f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusShipped, domain.Admin())
		require.NoError(t, err)

		stock := testutil.Stock(t, f.db, p.ID)
		_, err = f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusCancelled, domain.Admin())
		require.NoError(t, err)
		assert.Equal(t, stock+2, testutil.Stock(t, f.db, p.ID))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.CancelOrder(context.Background(), 999999, 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestOrderService_TransitionStatus_CODDelivered(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	o := placeOrder(t, f, 7, p, 1)

	for _, to := range []domain.OrderStatus{domain.StatusProcessing, domain.StatusShipped} {
		got, err := f.svc.TransitionStatus(context.Background(), o.ID, to, domain.Admin())
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
	}

	got, err := f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusDelivered, domain.Admin())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.OrderStatus)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	stored, err := f.svc.GetOrder(context.Background(), o.ID, domain.Admin())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}

func TestOrderService_TransitionStatus_Rejected(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	o := placeOrder(t, f, 7, p, 1)

	_, err := f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusPending, domain.Admin())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.TransitionStatus(context.Background(), o.ID, "lost", domain.Admin())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusShipped, domain.Customer(7))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.SetOrderCache(redisinfra.NewOrderCache(client, time.Minute))

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	o := placeOrder(t, f, 7, p, 1)

	got, err := f.svc.GetOrder(context.Background(), o.ID, domain.Customer(7))
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.True(t, mr.Exists("orders:"+strconv.FormatUint(o.ID, 10)))

	_, err = f.svc.GetOrder(context.Background(), o.ID, domain.Customer(8))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.TransitionStatus(context.Background(), o.ID, domain.StatusProcessing, domain.Admin())
	require.NoError(t, err)
	assert.False(t, mr.Exists("orders:"+strconv.FormatUint(o.ID, 10)))

	got, err = f.svc.GetOrder(context.Background(), o.ID, domain.Customer(7))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.OrderStatus)

	_, err = f.svc.GetOrder(context.Background(), 424242, domain.Admin())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetOrder_RacingReadDoesNotServeStaleStatus(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := redisinfra.NewOrderCache(client, time.Minute)
	f.svc.SetOrderCache(cache)

	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	o := placeOrder(t, f, 7, p, 1)
	ctx := context.Background()

	// A concurrent GetOrder loaded the pending row just before the cancel.
	gen, err := cache.Generation(ctx, o.ID)
	require.NoError(t, err)
	stale, err := repomysql.NewOrderRepository(f.db).FindByID(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, o.ID, 7)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, stale, gen))

	got, err := f.svc.GetOrder(ctx, o.ID, domain.Customer(7))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.OrderStatus)

	got, err = f.svc.GetOrder(ctx, o.ID, domain.Customer(7))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.OrderStatus)
}

func TestOrderService_ListCustomerOrders(t *testing.T) {
	f := newFixture(t)
	p := testutil.SeedProduct(t, f.db, "Kurta", 50000, 10)
	first := placeOrder(t, f, 7, p, 1)
	second := placeOrder(t, f, 7, p, 1)
	placeOrder(t, f, 8, p, 1)

	orders, err := f.svc.ListCustomerOrders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	orders, err = f.svc.ListCustomerOrders(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
