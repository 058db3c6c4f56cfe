package catalog

import "time"

const (
	TypeDiscount = "discount"
	TypeMystery  = "mystery"
	TypeDonation = "donation"
)

type Restaurant struct {
	ID          string
	OwnerUserID string
	Name        string
	Area        string
	HeroURL     string
	CreatedAt   time.Time
}

type Offer struct {
	ID                 string
	RestaurantID       string
	Title              string
	Type               string // discount | mystery | donation
	PriceCents         int
	OriginalPriceCents int
	Qty                int
	PickupStart        string // time of day, e.g. "17:30"
	PickupEnd          string
	PhotoURL           string
	CreatedAt          time.Time

	// RestaurantName is filled by joined reads for the public listing.
	RestaurantName string
}

// OfferUpdate carries the owner-edit fields; nil means leave unchanged.
// Edits go through the plain update path and are not subject to the
// reservation engine's oversell guarantee.
type OfferUpdate struct {
	Title              *string
	Type               *string
	PriceCents         *int
	OriginalPriceCents *int
	Qty                *int
	PickupStart        *string
	PickupEnd          *string
	PhotoURL           *string
}
