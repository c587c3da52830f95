package domain

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// Order amounts are frozen at creation; Subtotal + ShippingCost + Tax == Total.
type Order struct {
	ID                 uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber        string          `json:"orderNumber" gorm:"size:40;not null;uniqueIndex"`
	CustomerID         uint64          `json:"customerId" gorm:"not null;index;uniqueIndex:idx_orders_customer_idem"`
	Items              []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	ShippingAddress    ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:ship_"`
	ShippingMethod     ShippingMethod  `json:"shippingMethod" gorm:"size:16;not null"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod" gorm:"size:8;not null"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus" gorm:"size:8;not null;default:'pending'"`
	PaymentIntentID    string          `json:"paymentIntentId,omitempty" gorm:"size:128;index"`
	OrderStatus        OrderStatus     `json:"orderStatus" gorm:"size:16;not null;default:'pending';index"`
	Currency           string          `json:"currency" gorm:"size:3;not null"`
	Subtotal           int64           `json:"subtotal" gorm:"not null"`
	ShippingCost       int64           `json:"shippingCost" gorm:"not null"`
	Tax                int64           `json:"tax" gorm:"not null"`
	Total              int64           `json:"total" gorm:"not null"`
	IdempotencyKey     *string         `json:"-" gorm:"size:128;uniqueIndex:idx_orders_customer_idem"`
	RequestFingerprint string          `json:"-" gorm:"size:64"`
	IsArchived         bool            `json:"isArchived" gorm:"not null;default:false"`
	CreatedAt          time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

type OrderItem struct {
	ID          uint64 `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID     uint64 `json:"-" gorm:"not null;index"`
	ProductID   uint64 `json:"productId" gorm:"not null;index"`
	ProductName string `json:"productName" gorm:"size:255;not null"`
	UnitPrice   int64  `json:"unitPrice" gorm:"not null"`
	Quantity    int64  `json:"quantity" gorm:"not null"`
	LineTotal   int64  `json:"lineTotal" gorm:"not null"`
}

type ShippingAddress struct {
	FullName   string `json:"fullName" gorm:"size:120" validate:"required,max=120"`
	Phone      string `json:"phone" gorm:"size:32" validate:"required,max=32"`
	Line1      string `json:"line1" gorm:"size:255" validate:"required,max=255"`
	Line2      string `json:"line2,omitempty" gorm:"size:255" validate:"max=255"`
	City       string `json:"city" gorm:"size:80" validate:"required,max=80"`
	PostalCode string `json:"postalCode,omitempty" gorm:"size:20" validate:"max=20"`
	Country    string `json:"country" gorm:"size:2" validate:"required,len=2"`
}

// CheckAmounts reports whether the frozen amounts still add up.
func (o *Order) CheckAmounts() bool {
	return o.Subtotal+o.ShippingCost+o.Tax == o.Total
}
