package http

import (
	"time"

	"storefront-orders/internal/domain"
)

type AddressRequest struct {
	FullName   string `json:"fullName" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" binding:"required,len=2"`
}

type CreateOrderRequest struct {
	ShippingAddress AddressRequest `json:"shippingAddress" binding:"required"`
	ShippingMethod  string         `json:"shippingMethod" binding:"omitempty,oneof=standard express"`
	PaymentMethod   string         `json:"paymentMethod" binding:"required,oneof=cod card"`
	PaymentIntentID string         `json:"paymentIntentId" binding:"required_if=PaymentMethod card"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderItemResponse struct {
	ProductID   uint64 `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int64  `json:"quantity"`
	LineTotal   int64  `json:"lineTotal"`
}

type OrderResponse struct {
	ID              uint64                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	CustomerID      uint64                 `json:"customerId"`
	OrderStatus     domain.OrderStatus     `json:"orderStatus"`
	PaymentStatus   domain.PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	ShippingMethod  domain.ShippingMethod  `json:"shippingMethod"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Currency        string                 `json:"currency"`
	Subtotal        int64                  `json:"subtotal"`
	ShippingCost    int64                  `json:"shippingCost"`
	Tax             int64                  `json:"tax"`
	Total           int64                  `json:"total"`
	Items           []OrderItemResponse    `json:"items"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// Set for insufficient stock.
	ProductID uint64 `json:"productId,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

func (a AddressRequest) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		OrderStatus:     o.OrderStatus,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		ShippingMethod:  o.ShippingMethod,
		ShippingAddress: o.ShippingAddress,
		Currency:        o.Currency,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Tax:             o.Tax,
		Total:           o.Total,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
