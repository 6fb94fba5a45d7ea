package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// PaymentIndex remembers which order a payment reference already produced.
type PaymentIndex struct {
	RDB *redis.Client
}

func (p *PaymentIndex) Lookup(ctx context.Context, paymentRef string) (string, bool, error) {
	orderID, err := p.RDB.Get(ctx, fmt.Sprintf(KeyCheckoutPayment, paymentRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orderID, true, nil
}

func (p *PaymentIndex) Remember(ctx context.Context, paymentRef, orderID string) error {
	return p.RDB.Set(ctx, fmt.Sprintf(KeyCheckoutPayment, paymentRef), orderID, TTLIdempotency).Err()
}

// Deduper marks event ids as processed for one consuming service.
type Deduper struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen reports true exactly once per id within TTLDedup.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}
