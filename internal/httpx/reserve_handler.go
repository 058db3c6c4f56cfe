package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/foodable/foodable-api/internal/identity"
	kafkax "github.com/foodable/foodable-api/internal/kafka"
	"github.com/foodable/foodable-api/internal/orders"
	"github.com/foodable/foodable-api/internal/redisx"
	"github.com/foodable/foodable-api/internal/reservation"
)

// Reserver is implemented by reservation.Engine.
type Reserver interface {
	ReserveOne(ctx context.Context, offerID, userID string) (string, error)
	Checkout(ctx context.Context, items []reservation.Item, userID string) ([]string, error)
}

type ReservationHandler struct {
	Engine   Reserver
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string
}

type checkoutReq struct {
	Items []reservation.Item `json:"items"`
}

type reserveResp struct {
	Ok      bool   `json:"ok"`
	OrderID string `json:"orderId"`
}

type checkoutResp struct {
	Ok       bool     `json:"ok"`
	OrderIDs []string `json:"orderIds"`
}

// Reservation and checkout require an authenticated session; the engine itself
// only cares about what is reserved, not who reserves.
func (h *ReservationHandler) Register(r *chi.Mux) {
	r.With(identity.RequireUser).Post("/offers/{offerID}/reserve", h.reserve)
	r.With(identity.RequireUser).Post("/cart/checkout", h.checkout)
}

func (h *ReservationHandler) reserve(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")
	user := identity.UserFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Engine.ReserveOne(ctx, offerID, user.UserID)
	if err != nil {
		h.writeReservationError(w, err)
		return
	}

	h.invalidateOffer(ctx, offerID)
	h.publishReserved(orderID, offerID, user.UserID, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusOK, reserveResp{Ok: true, OrderID: orderID})
}

func (h *ReservationHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "bad_request", Message: "invalid json"})
		return
	}
	user := identity.UserFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Replay a previously completed checkout instead of reserving twice.
	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, k)
		if cached, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(cached))
			return
		}
	}

	orderIDs, err := h.Engine.Checkout(ctx, req.Items, user.UserID)
	if err != nil {
		h.writeReservationError(w, err)
		return
	}

	merged := reservation.MergeItems(req.Items)
	trace := r.Header.Get("X-Request-Id")
	i := 0
	for _, it := range merged {
		h.invalidateOffer(ctx, it.OfferID)
		for n := 0; n < it.Qty && i < len(orderIDs); n++ {
			h.publishReserved(orderIDs[i], it.OfferID, user.UserID, trace)
			i++
		}
	}

	resp := checkoutResp{Ok: true, OrderIDs: orderIDs}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, kafkax.MustMarshal(resp), redisx.TTLIdempotency).Err()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) writeReservationError(w http.ResponseWriter, err error) {
	var rerr *reservation.Error
	if !errors.As(err, &rerr) {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal", Message: "internal error"})
		return
	}
	switch rerr.Kind {
	case reservation.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found", Message: rerr.Error()})
	case reservation.KindSoldOut:
		writeJSON(w, http.StatusConflict, errorResp{Code: "sold_out", Message: rerr.Error()})
	case reservation.KindInsufficientQty:
		writeJSON(w, http.StatusConflict, errorResp{Code: "insufficient_qty", Message: rerr.Error()})
	case reservation.KindBadRequest:
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "bad_request", Message: rerr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal", Message: "internal error"})
	}
}

func (h *ReservationHandler) invalidateOffer(ctx context.Context, offerID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOfferCache, offerID)).Err()
}

func (h *ReservationHandler) publishReserved(orderID, offerID, userID, trace string) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderReserved,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.OrderReservedPayload{
			OrderID: orderID,
			OfferID: offerID,
			UserID:  userID,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(offerID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderReserved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
