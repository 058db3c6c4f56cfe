package orders

import "time"

// Order is the append-only record that one unit of one offer was reserved.
// Rows are created by the reservation engine and never mutated afterwards;
// there is no cancellation or refund lifecycle.
type Order struct {
	ID        string
	OfferID   string
	UserID    string
	Status    string // always "reserved"
	CreatedAt time.Time
}

const StatusReserved = "reserved"
