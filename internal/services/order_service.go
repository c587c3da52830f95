package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront-orders/internal/domain"
	redisinfra "storefront-orders/internal/infra/redis"
	"storefront-orders/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrOrderNotFound = fmt.Errorf("order %w", domain.ErrNotFound)

type IdempotencyStore interface {
	Acquire(ctx context.Context, customerID uint64, key, fingerprint string) (*redisinfra.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, customerID uint64, key, fingerprint string, orderID uint64) error
	Release(ctx context.Context, customerID uint64, key string) error
}

// OrderCache is a versioned read-through cache. Set stores an order together
// with the generation observed before it was loaded; Invalidate retires that
// generation so a racing Set cannot resurrect a superseded row.
type OrderCache interface {
	Get(ctx context.Context, id uint64) (*domain.Order, error)
	Generation(ctx context.Context, id uint64) (int64, error)
	Set(ctx context.Context, o *domain.Order, gen int64) error
	Invalidate(ctx context.Context, id uint64) error
}

type Options struct {
	PaymentSuccessStatus string
	// PaymentTolerance is the accepted |paid - total| in base-currency minor units.
	PaymentTolerance int64
}

// CheckoutRequest is everything a checkout needs besides the cart itself,
// which is read from the customer's stored cart lines.
type CheckoutRequest struct {
	CustomerID      uint64
	ShippingAddress domain.ShippingAddress
	ShippingMethod  domain.ShippingMethod
	PaymentMethod   domain.PaymentMethod
	PaymentIntentID string
	IdempotencyKey  string
}

// fingerprint identifies the request behind an idempotency key. The cart is
// emptied by the first successful attempt, so it is not part of it.
func (r CheckoutRequest) fingerprint() string {
	a := r.ShippingAddress
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|", r.CustomerID, r.PaymentMethod, r.ShippingMethod, r.PaymentIntentID)
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s", a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.PostalCode, a.Country)
	return hex.EncodeToString(h.Sum(nil))
}

type OrderService struct {
	uow       repository.UnitOfWork
	orders    repository.OrderRepository
	settings  *SettingsProvider
	inventory *Inventory
	payments  *PaymentVerifier
	notifier  Notifier
	opts      Options

	idem  IdempotencyStore
	cache OrderCache

	tracer trace.Tracer
	now    func() time.Time
}

func NewOrderService(
	uow repository.UnitOfWork,
	orders repository.OrderRepository,
	settings *SettingsProvider,
	inventory *Inventory,
	payments *PaymentVerifier,
	notifier Notifier,
	opts Options,
) *OrderService {
	return &OrderService{
		uow:       uow,
		orders:    orders,
		settings:  settings,
		inventory: inventory,
		payments:  payments,
		notifier:  notifier,
		opts:      opts,
		tracer:    otel.Tracer("storefront-orders/services"),
		now:       time.Now,
	}
}

func (s *OrderService) SetIdempotencyStore(store IdempotencyStore) {
	s.idem = store
}

func (s *OrderService) SetOrderCache(cache OrderCache) {
	s.cache = cache
}

// CreateOrder turns the customer's cart into an order. Reservation, payment
// verification, the order insert, customer statistics and emptying the cart
// run in one unit of work; any failure leaves stock, cart and orders as they
// were. Notifications go out only after commit.
func (s *OrderService) CreateOrder(ctx context.Context, req CheckoutRequest) (order *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.Int64("customer.id", int64(req.CustomerID)),
		attribute.String("payment.method", string(req.PaymentMethod)),
	))
	defer func() { endSpan(span, err) }()

	// Once submitted a checkout runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := s.validateCheckout(&req); err != nil {
		return nil, err
	}
	fp := req.fingerprint()

	if req.IdempotencyKey != "" {
		prior, rerr := s.replay(ctx, req, fp)
		if rerr != nil || prior != nil {
			return prior, rerr
		}

		if s.idem != nil {
			rec, acquired, ierr := s.idem.Acquire(ctx, req.CustomerID, req.IdempotencyKey, fp)
			switch {
			case ierr != nil:
				slog.Warn("idempotency store unavailable, relying on database", "err", ierr)
			case !acquired:
				return s.inFlight(ctx, req, fp, rec)
			default:
				defer s.settleKey(ctx, req, fp, &order, &err)
			}
		}
	}

	settings, err := s.settings.StoreSettings(ctx)
	if err != nil {
		return nil, err
	}

	var reservations []Reservation
	err = s.uow.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		lines, err := st.Carts.GetLines(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if err := validateLines(lines); err != nil {
			return err
		}

		quote := Price(lines, settings, req.ShippingMethod)

		reservations, err = s.inventory.ReserveLines(ctx, st.Products, lines)
		if err != nil {
			return err
		}

		paymentStatus := domain.PaymentPending
		if req.PaymentMethod == domain.PaymentCard {
			pv, err := s.payments.Verify(ctx, req.PaymentIntentID)
			if err != nil {
				return err
			}
			if err := matchPayment(pv, quote.Total, settings, s.opts.PaymentSuccessStatus, s.opts.PaymentTolerance); err != nil {
				return err
			}
			paymentStatus = domain.PaymentPaid
		}

		o := s.buildOrder(req, fp, lines, quote, paymentStatus)
		if err := st.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		if err := st.Customers.IncrementOrderStats(ctx, req.CustomerID, quote.Total, o.CreatedAt); err != nil {
			return fmt.Errorf("update customer stats: %w", err)
		}
		if err := st.Carts.Clear(ctx, req.CustomerID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		if req.IdempotencyKey != "" {
			// A concurrent attempt with the same key may have committed first,
			// consuming the cart or the stock this attempt needed.
			prior, rerr := s.replay(ctx, req, fp)
			switch {
			case prior != nil:
				return prior, nil
			case errors.Is(rerr, domain.ErrValidation):
				return nil, rerr
			case rerr != nil:
				slog.Warn("idempotency lookup after failed checkout", "customerId", req.CustomerID, "err", rerr)
			}
		}
		slog.Info("checkout failed", "customerId", req.CustomerID, "err", err)
		return nil, err
	}

	slog.Info("order created",
		"orderId", order.ID,
		"orderNumber", order.OrderNumber,
		"customerId", order.CustomerID,
		"total", order.Total,
	)

	s.notifier.Notify(domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Total:         order.Total,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     len(order.Items),
		CreatedAt:     order.CreatedAt,
	})
	s.inventory.EmitSignals(reservations)

	return order, nil
}

func (s *OrderService) validateCheckout(req *CheckoutRequest) error {
	if req.CustomerID == 0 {
		return domain.Validationf("customer is required")
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = domain.ShippingStandard
	}
	if err := req.ShippingMethod.Validate(); err != nil {
		return err
	}
	if err := req.PaymentMethod.Validate(); err != nil {
		return err
	}
	switch req.PaymentMethod {
	case domain.PaymentCard:
		if strings.TrimSpace(req.PaymentIntentID) == "" {
			return domain.Validationf("payment intent is required for card payments")
		}
	case domain.PaymentCOD:
		req.PaymentIntentID = ""
	}
	if len(req.IdempotencyKey) > 128 {
		return domain.Validationf("idempotency key is longer than 128 characters")
	}
	return req.ShippingAddress.Validate()
}

func validateLines(lines []domain.CartItem) error {
	if len(lines) == 0 {
		return domain.Validationf("cart is empty")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return domain.Validationf("cart line for product %d has quantity %d", l.ProductID, l.Quantity)
		}
		if l.UnitPrice < 0 {
			return domain.Validationf("cart line for product %d has a negative price", l.ProductID)
		}
	}
	return nil
}

func (s *OrderService) buildOrder(req CheckoutRequest, fp string, lines []domain.CartItem, q Quote, paymentStatus domain.PaymentStatus) *domain.Order {
	now := s.now().UTC()
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.UnitPrice * l.Quantity,
		})
	}

	o := &domain.Order{
		OrderNumber:        newOrderNumber(now),
		CustomerID:         req.CustomerID,
		Items:              items,
		ShippingAddress:    req.ShippingAddress,
		ShippingMethod:     req.ShippingMethod,
		PaymentMethod:      req.PaymentMethod,
		PaymentStatus:      paymentStatus,
		PaymentIntentID:    req.PaymentIntentID,
		OrderStatus:        domain.StatusPending,
		Currency:           q.Currency,
		Subtotal:           q.Subtotal,
		ShippingCost:       q.ShippingCost,
		Tax:                q.Tax,
		Total:              q.Total,
		RequestFingerprint: fp,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		o.IdempotencyKey = &key
	}
	return o
}

func newOrderNumber(at time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), id[:16])
}

// replay returns the order an earlier attempt with the same idempotency key
// created, or nil when there is none.
func (s *OrderService) replay(ctx context.Context, req CheckoutRequest, fp string) (*domain.Order, error) {
	prior, err := s.orders.FindByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if prior == nil {
		return nil, nil
	}
	if prior.RequestFingerprint != fp {
		return nil, domain.Validationf("idempotency key %q was already used for a different checkout", req.IdempotencyKey)
	}
	slog.Info("duplicate checkout request, returning original order", "orderId", prior.ID, "customerId", req.CustomerID)
	return prior, nil
}

// settleKey runs when CreateOrder returns: a failed attempt frees the key for
// a retry, a successful one records the order it produced.
func (s *OrderService) settleKey(ctx context.Context, req CheckoutRequest, fp string, order **domain.Order, err *error) {
	if *err != nil || *order == nil {
		if rerr := s.idem.Release(ctx, req.CustomerID, req.IdempotencyKey); rerr != nil {
			slog.Warn("failed to release idempotency key", "err", rerr)
		}
		return
	}
	id := (*order).ID
	if cerr := s.idem.Complete(ctx, req.CustomerID, req.IdempotencyKey, fp, id); cerr != nil {
		slog.Warn("failed to record idempotency key", "orderId", id, "err", cerr)
	}
}

func (s *OrderService) inFlight(ctx context.Context, req CheckoutRequest, fp string, rec *redisinfra.IdempotencyRecord) (*domain.Order, error) {
	if rec.Fingerprint != fp {
		return nil, domain.Validationf("idempotency key %q was already used for a different checkout", req.IdempotencyKey)
	}
	if rec.OrderID == 0 {
		return nil, domain.ErrCheckoutInProgress
	}
	o, err := s.orders.FindByID(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrCheckoutInProgress
	}
	return o, nil
}

// TransitionStatus moves an order through its lifecycle. Cancelling puts
// the order's quantities back in stock in the same unit of work as the
// status write, so neither can happen without the other.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID uint64, to domain.OrderStatus, actor domain.Actor) (order *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.TransitionStatus", trace.WithAttributes(
		attribute.Int64("order.id", int64(orderID)),
		attribute.String("order.to", string(to)),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer func() { endSpan(span, err) }()

	var from domain.OrderStatus
	err = s.uow.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		o, err := st.Orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order %d: %w", orderID, err)
		}
		if o == nil || (actor.Role == domain.RoleCustomer && o.CustomerID != actor.CustomerID) {
			return ErrOrderNotFound
		}
		if err := domain.CheckTransition(o.OrderStatus, to, actor.Role); err != nil {
			return err
		}

		payment := domain.NextPaymentStatus(o, to)
		ok, err := st.Orders.UpdateStatus(ctx, o.ID, o.OrderStatus, to, payment)
		if err != nil {
			return fmt.Errorf("update order %d: %w", orderID, err)
		}
		if !ok {
			return fmt.Errorf("%w: order %d was modified concurrently", domain.ErrInvalidTransition, orderID)
		}
		if to == domain.StatusCancelled {
			if err := s.inventory.RestoreItems(ctx, st.Products, o.Items); err != nil {
				return err
			}
		}

		from = o.OrderStatus
		o.OrderStatus = to
		o.PaymentStatus = payment
		o.UpdatedAt = s.now().UTC()
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, orderID)
	slog.Info("order status changed", "orderId", orderID, "from", from, "to", to, "by", actor.Role)

	evt := domain.OrderStatusChangedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		From:          from,
		To:            to,
		PaymentStatus: order.PaymentStatus,
		ChangedBy:     actor.Role,
		ChangedAt:     order.UpdatedAt,
	}
	s.notifier.Notify(domain.EventOrderStatusChanged, evt)
	if to == domain.StatusCancelled {
		s.notifier.Notify(domain.EventOrderCancelled, evt)
	}
	return order, nil
}

// CancelOrder is the customer-facing cancellation: only the owner, and only
// while the order is pending or processing.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, customerID uint64) (*domain.Order, error) {
	return s.TransitionStatus(ctx, orderID, domain.StatusCancelled, domain.Customer(customerID))
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint64, actor domain.Actor) (*domain.Order, error) {
	o, err := s.cachedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || (actor.Role == domain.RoleCustomer && o.CustomerID != actor.CustomerID) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uint64) ([]domain.Order, error) {
	return s.orders.FindByCustomer(ctx, customerID)
}

func (s *OrderService) cachedOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	cacheable := false
	var gen int64
	if s.cache != nil {
		o, err := s.cache.Get(ctx, orderID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			slog.Warn("order cache read failed", "orderId", orderID, "err", err)
		}
		if gen, err = s.cache.Generation(ctx, orderID); err != nil {
			slog.Warn("order cache read failed", "orderId", orderID, "err", err)
		} else {
			cacheable = true
		}
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil || o == nil {
		return o, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, o, gen); err != nil {
			slog.Warn("order cache write failed", "orderId", orderID, "err", err)
		}
	}
	return o, nil
}

func (s *OrderService) invalidate(ctx context.Context, orderID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, orderID); err != nil {
		slog.Warn("order cache invalidation failed", "orderId", orderID, "err", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
