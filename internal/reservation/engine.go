package reservation

import "context"

// OfferStore is the only mutation path the engine may use against offers.
// DecrementIfAvailable must be a single conditional update (qty = qty - 1
// only while qty > 0) reporting whether a row was affected; a separate
// read-then-write pair would race under concurrent reservations.
type OfferStore interface {
	DecrementIfAvailable(ctx context.Context, offerID string) (bool, error)
	OfferExists(ctx context.Context, offerID string) (bool, error)
}

// OrderLedger appends one order row per reserved unit inside the current
// transaction and returns its generated id.
type OrderLedger interface {
	AppendOrder(ctx context.Context, offerID, userID string) (string, error)
}

type Tx interface {
	OfferStore
	OrderLedger
}

// Store runs fn inside one atomic unit. If fn returns an error every effect
// performed in the unit is discarded.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Item struct {
	OfferID string `json:"offerId"`
	Qty     int    `json:"qty"`
}

// Engine implements single-unit reservation and all-or-nothing cart checkout
// on top of the conditional-decrement primitive.
type Engine struct {
	Store Store
}

// ReserveOne claims one unit of the offer: decrement and order append happen
// in one transaction. Two concurrent callers against qty 1 get exactly one
// success and one sold-out.
func (e *Engine) ReserveOne(ctx context.Context, offerID, userID string) (string, error) {
	var orderID string
	err := e.Store.WithinTx(ctx, func(tx Tx) error {
		id, err := reserveUnit(ctx, tx, offerID, userID, KindSoldOut)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}

// Checkout reserves every unit of the cart inside one transaction. Duplicate
// offer ids are merged by summing quantities, requested quantities are clamped
// to at least 1, and the first failing unit aborts the whole batch.
func (e *Engine) Checkout(ctx context.Context, items []Item, userID string) ([]string, error) {
	if len(items) == 0 {
		return nil, &Error{Kind: KindBadRequest}
	}
	merged := MergeItems(items)

	var orderIDs []string
	err := e.Store.WithinTx(ctx, func(tx Tx) error {
		for _, it := range merged {
			for i := 0; i < it.Qty; i++ {
				id, err := reserveUnit(ctx, tx, it.OfferID, userID, KindInsufficientQty)
				if err != nil {
					return err
				}
				orderIDs = append(orderIDs, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orderIDs, nil
}

// reserveUnit is the shared per-unit step. missKind distinguishes the two
// surfaces: sold_out for single reservation, insufficient_qty for checkout.
func reserveUnit(ctx context.Context, tx Tx, offerID, userID string, missKind Kind) (string, error) {
	ok, err := tx.DecrementIfAvailable(ctx, offerID)
	if err != nil {
		return "", err
	}
	if !ok {
		exists, err := tx.OfferExists(ctx, offerID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", &Error{Kind: KindNotFound, OfferID: offerID}
		}
		return "", &Error{Kind: missKind, OfferID: offerID}
	}
	return tx.AppendOrder(ctx, offerID, userID)
}

// MergeItems sums quantities per offer id keeping first-seen order. Blank ids
// are dropped; quantities below 1 count as 1.
func MergeItems(items []Item) []Item {
	idx := make(map[string]int, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.OfferID == "" {
			continue
		}
		qty := it.Qty
		if qty < 1 {
			qty = 1
		}
		if i, seen := idx[it.OfferID]; seen {
			out[i].Qty += qty
			continue
		}
		idx[it.OfferID] = len(out)
		out = append(out, Item{OfferID: it.OfferID, Qty: qty})
	}
	return out
}
