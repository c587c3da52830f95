package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventLowStock           = "inventory.low_stock"
	EventOutOfStock         = "inventory.out_of_stock"
)

type OrderCreatedEvent struct {
	OrderID       uint64        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	CustomerID    uint64        `json:"customerId"`
	Total         int64         `json:"total"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	ItemCount     int           `json:"itemCount"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID       uint64        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	CustomerID    uint64        `json:"customerId"`
	From          OrderStatus   `json:"from"`
	To            OrderStatus   `json:"to"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	ChangedBy     Role          `json:"changedBy"`
	ChangedAt     time.Time     `json:"changedAt"`
}

type StockSignalEvent struct {
	ProductID   uint64 `json:"productId"`
	ProductName string `json:"productName"`
	Remaining   int64  `json:"remaining"`
	Watermark   int64  `json:"watermark"`
}
