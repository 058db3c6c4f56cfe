package redisx

import "time"

const (
	// Offer detail cache: offer:{offer_id} -> offer JSON
	KeyOfferCache = "offer:%s"

	// Idempotent checkout replay: idem:checkout:{Idempotency-Key} -> response JSON
	KeyIdemCheckout = "idem:checkout:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOfferCache  = 5 * time.Minute
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
