package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	idemKeyPrefix = "checkout:idem:"
	// inFlightTTL bounds how long a crashed checkout can hold its key.
	inFlightTTL = 2 * time.Minute
)

// IdempotencyRecord is what a checkout attempt left behind under its key.
// OrderID is zero while the attempt is still running.
type IdempotencyRecord struct {
	Fingerprint string `json:"fingerprint"`
	OrderID     uint64 `json:"orderId,omitempty"`
}

type IdempotencyStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *goredis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idemKey(customerID uint64, key string) string {
	return fmt.Sprintf("%s%d:%s", idemKeyPrefix, customerID, key)
}

// Acquire claims key for a new attempt. When the key is already taken it
// returns the existing record and acquired=false.
func (s *IdempotencyStore) Acquire(ctx context.Context, customerID uint64, key, fingerprint string) (*IdempotencyRecord, bool, error) {
	data, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint})
	if err != nil {
		return nil, false, err
	}

	k := idemKey(customerID, key)
	ok, err := s.client.SetNX(ctx, k, data, inFlightTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, goredis.Nil) {
		// Expired between SETNX and GET; let the caller retry.
		return &IdempotencyRecord{Fingerprint: fingerprint}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &rec, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, customerID uint64, key, fingerprint string, orderID uint64) error {
	data, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint, OrderID: orderID})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, idemKey(customerID, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Release frees the key after a failed attempt so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, customerID uint64, key string) error {
	return s.client.Del(ctx, idemKey(customerID, key)).Err()
}
