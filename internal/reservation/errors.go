package reservation

import "fmt"

// Kind classifies reservation failures so the HTTP layer can map them to a
// status code without inspecting message text.
type Kind int

const (
	// KindNotFound: the referenced offer id does not exist.
	KindNotFound Kind = iota
	// KindSoldOut: single reservation against an offer with qty 0.
	KindSoldOut
	// KindInsufficientQty: batch checkout could not satisfy the requested
	// units for an existing offer.
	KindInsufficientQty
	// KindBadRequest: malformed batch input (empty or missing item list).
	KindBadRequest
)

type Error struct {
	Kind    Kind
	OfferID string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("offer not found: %s", e.OfferID)
	case KindSoldOut:
		return fmt.Sprintf("offer is sold out: %s", e.OfferID)
	case KindInsufficientQty:
		return fmt.Sprintf("offer does not have enough quantity: %s", e.OfferID)
	case KindBadRequest:
		return "items[] required"
	}
	return "reservation failed"
}
