package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderReserved = "OrderReserved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderReservedPayload struct {
	OrderID string `json:"order_id"`
	OfferID string `json:"offer_id"`
	UserID  string `json:"user_id,omitempty"`
}
