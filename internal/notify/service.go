package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/foodable/foodable-api/internal/catalog"
	kafkax "github.com/foodable/foodable-api/internal/kafka"
	"github.com/foodable/foodable-api/internal/orders"
	"github.com/foodable/foodable-api/internal/redisx"
)

// Service consumes order.reserved events and emits pickup notifications.
// Delivery is a log line for now; the dedup and offer lookup are the real work.
type Service struct {
	Catalog     catalog.Repository
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderReserved is installed as the consumer handler.
func (s *Service) HandleOrderReserved(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderReserved {
		return nil // ignore
	}

	// Dedup by event id so redelivered messages notify once.
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderReservedPayload](env.Payload)
	if err != nil {
		return err
	}

	o, err := s.Catalog.GetOffer(ctx, p.OfferID)
	if errors.Is(err, catalog.ErrNotFound) {
		// Offer deleted after reservation; the order still stands.
		log.Printf("[%s] order %s reserved (offer %s no longer listed)", s.ServiceName, p.OrderID, p.OfferID)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("[%s] order %s reserved: %q at %s, pickup %s-%s",
		s.ServiceName, p.OrderID, o.Title, o.RestaurantName, o.PickupStart, o.PickupEnd)
	return nil
}
