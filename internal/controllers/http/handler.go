package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	headerCustomerID     = "X-Customer-ID"
	headerRole           = "X-Role"
	headerIdempotencyKey = "Idempotency-Key"
	actorKey             = "actor"
)

type OrderUsecase interface {
	CreateOrder(ctx context.Context, req services.CheckoutRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uint64, actor domain.Actor) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uint64) ([]domain.Order, error)
	CancelOrder(ctx context.Context, orderID, customerID uint64) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID uint64, to domain.OrderStatus, actor domain.Actor) (*domain.Order, error)
}

var _ OrderUsecase = (*services.OrderService)(nil)

type Handler struct {
	service OrderUsecase
}

func NewHandler(u OrderUsecase) *Handler {
	return &Handler{service: u}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	orders := r.Group("/orders", identify)
	orders.POST("", requireCustomer, h.CreateOrder)
	orders.GET("", requireCustomer, h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/cancel", requireCustomer, h.CancelOrder)

	admin := r.Group("/admin", identify, requireAdmin)
	admin.PATCH("/orders/:id/status", h.UpdateStatus)
}

// identify reads the caller identity set by the upstream gateway.
func identify(c *gin.Context) {
	role := domain.Role(c.GetHeader(headerRole))
	if role == "" {
		role = domain.RoleCustomer
	}
	switch role {
	case domain.RoleAdmin:
		c.Set(actorKey, domain.Admin())
	case domain.RoleCustomer:
		id, err := strconv.ParseUint(c.GetHeader(headerCustomerID), 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + headerCustomerID})
			return
		}
		c.Set(actorKey, domain.Customer(id))
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "unknown role"})
		return
	}
	c.Next()
}

func requireCustomer(c *gin.Context) {
	if actorFrom(c).Role != domain.RoleCustomer {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "customer only"})
		return
	}
	c.Next()
}

func requireAdmin(c *gin.Context) {
	if actorFrom(c).Role != domain.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin only"})
		return
	}
	c.Next()
}

func actorFrom(c *gin.Context) domain.Actor {
	a, _ := c.Get(actorKey)
	actor, _ := a.(domain.Actor)
	return actor
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), services.CheckoutRequest{
		CustomerID:      actorFrom(c).CustomerID,
		ShippingAddress: req.ShippingAddress.toDomain(),
		ShippingMethod:  domain.ShippingMethod(req.ShippingMethod),
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		PaymentIntentID: req.PaymentIntentID,
		IdempotencyKey:  c.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListCustomerOrders(c.Request.Context(), actorFrom(c).CustomerID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.service.CancelOrder(c.Request.Context(), id, actorFrom(c).CustomerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	order, err := h.service.TransitionStatus(c.Request.Context(), id, domain.OrderStatus(req.Status), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func orderID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), ProductID: stockErr.ProductID, Available: &available})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPaymentMismatch):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
