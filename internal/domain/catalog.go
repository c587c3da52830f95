package domain

import "time"

type Product struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	UnitPrice int64     `json:"unitPrice" gorm:"not null"`
	Stock     int64     `json:"stock" gorm:"not null;check:stock >= 0"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CartItem is one cart line. UnitPrice is the price captured when the item
// was added; checkout prices from it and never re-reads Product.UnitPrice.
type CartItem struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	CustomerID  uint64    `json:"customerId" gorm:"not null;index"`
	ProductID   uint64    `json:"productId" gorm:"not null"`
	ProductName string    `json:"productName" gorm:"size:255"`
	Quantity    int64     `json:"quantity" gorm:"not null"`
	UnitPrice   int64     `json:"unitPrice" gorm:"not null"`
	AddedAt     time.Time `json:"addedAt" gorm:"autoCreateTime"`
}

type CustomerStats struct {
	CustomerID    uint64     `json:"customerId" gorm:"primaryKey;autoIncrement:false"`
	OrderCount    int64      `json:"orderCount" gorm:"not null;default:0"`
	LifetimeSpend int64      `json:"lifetimeSpend" gorm:"not null;default:0"`
	LastOrderAt   *time.Time `json:"lastOrderAt"`
}
