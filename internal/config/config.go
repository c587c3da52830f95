package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-orders/internal/domain"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	MySQL    MySQL
	Redis    Redis
	RabbitMQ RabbitMQ
	Payment  Payment
	Checkout Checkout

	StoreDefaults domain.StoreSettings
}

type MySQL struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (m MySQL) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC", m.User, m.Password, m.Host, m.Port, m.Database)
}

type Redis struct {
	// Addr is empty when Redis is not configured; idempotency then relies on
	// the orders table alone and order reads are not cached.
	Addr string
	DB   int
}

type RabbitMQ struct {
	URL      string
	Exchange string
}

type Payment struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
	// Tolerance is the accepted |paid - total| in base-currency minor units.
	Tolerance     int64
	SuccessStatus string
}

type Checkout struct {
	LowStockWatermark int64
	NotifyWorkers     int
	NotifyBuffer      int
	IdempotencyTTL    time.Duration
	OrderCacheTTL     time.Duration
}

// Defaults used when the environment and the store_settings row are silent.
const (
	DefaultBaseCurrency          = "PKR"
	DefaultExchangeRate          = 280.0
	DefaultTaxRatePercent        = 10.0
	DefaultFreeShippingThreshold = 500000
	DefaultStandardShippingCost  = 20000
	DefaultExpressShippingCost   = 50000
)

func Load() (Config, error) {
	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("PORT", 8080),
		MySQL: MySQL{
			User:            getEnv("MYSQL_USER", "root"),
			Password:        os.Getenv("MYSQL_PASSWORD"),
			Host:            getEnv("MYSQL_HOST", "localhost"),
			Port:            getEnvInt("MYSQL_PORT", 3306),
			Database:        getEnv("MYSQL_DATABASE", "storefront"),
			MaxOpenConns:    getEnvInt("MYSQL_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("MYSQL_MAX_IDLE_CONNS", 20),
			ConnMaxLifetime: getEnvDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			Addr: os.Getenv("REDIS_ADDR"),
			DB:   getEnvInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQ{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "storefront.orders"),
		},
		Payment: Payment{
			GatewayURL:    os.Getenv("PAYMENT_GATEWAY_URL"),
			APIKey:        os.Getenv("PAYMENT_GATEWAY_KEY"),
			Timeout:       getEnvDuration("PAYMENT_TIMEOUT", 5*time.Second),
			Tolerance:     int64(getEnvInt("PAYMENT_AMOUNT_TOLERANCE", 1)),
			SuccessStatus: getEnv("PAYMENT_SUCCESS_STATUS", "succeeded"),
		},
		Checkout: Checkout{
			LowStockWatermark: int64(getEnvInt("LOW_STOCK_WATERMARK", 5)),
			NotifyWorkers:     getEnvInt("NOTIFY_WORKERS", 4),
			NotifyBuffer:      getEnvInt("NOTIFY_BUFFER", 1024),
			IdempotencyTTL:    getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			OrderCacheTTL:     getEnvDuration("ORDER_CACHE_TTL", 10*time.Second),
		},
		StoreDefaults: domain.StoreSettings{
			BaseCurrency:          getEnv("STORE_BASE_CURRENCY", DefaultBaseCurrency),
			DisplayCurrency:       getEnv("STORE_DISPLAY_CURRENCY", DefaultBaseCurrency),
			ExchangeRate:          getEnvFloat("STORE_EXCHANGE_RATE", DefaultExchangeRate),
			FreeShippingThreshold: int64(getEnvInt("STORE_FREE_SHIPPING_THRESHOLD", DefaultFreeShippingThreshold)),
			StandardShippingCost:  int64(getEnvInt("STORE_STANDARD_SHIPPING", DefaultStandardShippingCost)),
			ExpressShippingCost:   int64(getEnvInt("STORE_EXPRESS_SHIPPING", DefaultExpressShippingCost)),
			TaxRatePercent:        getEnvFloat("STORE_TAX_RATE", DefaultTaxRatePercent),
			TaxIncludedInPrice:    getEnvBool("STORE_TAX_INCLUDED", false),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.HTTPPort))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT must be positive"))
	}
	if c.Payment.Tolerance < 0 {
		errs = append(errs, errors.New("PAYMENT_AMOUNT_TOLERANCE must not be negative"))
	}
	if c.Checkout.LowStockWatermark < 0 {
		errs = append(errs, errors.New("LOW_STOCK_WATERMARK must not be negative"))
	}
	if c.Checkout.NotifyWorkers <= 0 || c.Checkout.NotifyBuffer <= 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS and NOTIFY_BUFFER must be positive"))
	}
	d := c.StoreDefaults
	if len(d.BaseCurrency) != 3 || len(d.DisplayCurrency) != 3 {
		errs = append(errs, errors.New("store currencies must be ISO-4217 codes"))
	}
	if d.ExchangeRate <= 0 {
		errs = append(errs, errors.New("STORE_EXCHANGE_RATE must be positive"))
	}
	if d.TaxRatePercent < 0 || d.TaxRatePercent > 100 {
		errs = append(errs, errors.New("STORE_TAX_RATE must be within 0..100"))
	}
	if d.FreeShippingThreshold < 0 || d.StandardShippingCost < 0 || d.ExpressShippingCost < 0 {
		errs = append(errs, errors.New("store shipping amounts must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
