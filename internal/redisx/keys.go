package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:payment:{payment_reference} -> order_id
	KeyCheckoutPayment = "idem:checkout:payment:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
