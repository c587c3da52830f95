// Package testutil provides an in-memory database with the production schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"storefront-orders/internal/domain"
	imysql "storefront-orders/internal/infra/mysql"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database. A single connection
// serialises writers the way SQLite expects.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_test_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, imysql.Migrate(db))
	return db
}

func SeedProduct(t testing.TB, db *gorm.DB, name string, price, stock int64) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, UnitPrice: price, Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func AddToCart(t testing.TB, db *gorm.DB, customerID uint64, p *domain.Product, qty int64) {
	t.Helper()
	require.NoError(t, db.Create(&domain.CartItem{
		CustomerID:  customerID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.UnitPrice,
	}).Error)
}

func Stock(t testing.TB, db *gorm.DB, productID uint64) int64 {
	t.Helper()
	var p domain.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Stock
}

func Address() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Ayesha Khan",
		Phone:    "+923001234567",
		Line1:    "12 Mall Road",
		City:     "Lahore",
		Country:  "PK",
	}
}
