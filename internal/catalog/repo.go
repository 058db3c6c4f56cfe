package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned for missing rows so HTTP handlers can answer 404.
var ErrNotFound = errors.New("catalog: not found")

// DB is the slice of pgxpool.Pool the repository needs; narrow so tests can
// substitute a mock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*Restaurant, error)
	RestaurantByOwner(ctx context.Context, ownerUserID string) (*Restaurant, error)
	UpsertRestaurant(ctx context.Context, r *Restaurant) error

	ListOffers(ctx context.Context) ([]Offer, error)
	ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]Offer, error)
	GetOffer(ctx context.Context, id string) (*Offer, error)
	CreateOffer(ctx context.Context, o *Offer) error
	UpdateOffer(ctx context.Context, id string, upd OfferUpdate) (*Offer, error)
	DeleteOffer(ctx context.Context, id string) error
	OfferOwner(ctx context.Context, offerID string) (string, error)
}

type repo struct {
	db DB
}

func NewRepository(db DB) Repository { return &repo{db: db} }

const offerColumns = `o.id, o.restaurant_id, o.title, o.type, o.price_cents, o.original_price_cents,
       o.qty, o.pickup_start, o.pickup_end, COALESCE(o.photo_url, ''), o.created_at,
       COALESCE(r.name, '')`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.RestaurantID, &o.Title, &o.Type, &o.PriceCents, &o.OriginalPriceCents,
		&o.Qty, &o.PickupStart, &o.PickupEnd, &o.PhotoURL, &o.CreatedAt, &o.RestaurantName)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(owner_user_id::text, ''), name, COALESCE(area, ''), COALESCE(hero_url, ''), created_at
		FROM restaurants ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		var x Restaurant
		if err := rows.Scan(&x.ID, &x.OwnerUserID, &x.Name, &x.Area, &x.HeroURL, &x.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *repo) GetRestaurant(ctx context.Context, id string) (*Restaurant, error) {
	var x Restaurant
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(owner_user_id::text, ''), name, COALESCE(area, ''), COALESCE(hero_url, ''), created_at
		FROM restaurants WHERE id = $1`, id).
		Scan(&x.ID, &x.OwnerUserID, &x.Name, &x.Area, &x.HeroURL, &x.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func (r *repo) RestaurantByOwner(ctx context.Context, ownerUserID string) (*Restaurant, error) {
	var x Restaurant
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(owner_user_id::text, ''), name, COALESCE(area, ''), COALESCE(hero_url, ''), created_at
		FROM restaurants WHERE owner_user_id = $1`, ownerUserID).
		Scan(&x.ID, &x.OwnerUserID, &x.Name, &x.Area, &x.HeroURL, &x.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &x, nil
}

// UpsertRestaurant creates the owner's restaurant profile or updates it in
// place; each owner has at most one restaurant.
func (r *repo) UpsertRestaurant(ctx context.Context, x *Restaurant) error {
	existing, err := r.RestaurantByOwner(ctx, x.OwnerUserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		x.ID = existing.ID
		x.CreatedAt = existing.CreatedAt
		_, err := r.db.Exec(ctx, `
			UPDATE restaurants SET name = $2, area = NULLIF($3, ''), hero_url = NULLIF($4, '')
			WHERE id = $1`, x.ID, x.Name, x.Area, x.HeroURL)
		return err
	}
	if x.ID == "" {
		x.ID = uuid.NewString()
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO restaurants(id, owner_user_id, name, area, hero_url)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))`,
		x.ID, x.OwnerUserID, x.Name, x.Area, x.HeroURL)
	return err
}

func (r *repo) ListOffers(ctx context.Context) ([]Offer, error) {
	return r.listOffers(ctx, `
		SELECT `+offerColumns+`
		FROM offers o LEFT JOIN restaurants r ON r.id = o.restaurant_id
		ORDER BY o.created_at DESC`)
}

func (r *repo) ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]Offer, error) {
	return r.listOffers(ctx, `
		SELECT `+offerColumns+`
		FROM offers o LEFT JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.restaurant_id = $1
		ORDER BY o.created_at DESC`, restaurantID)
}

func (r *repo) listOffers(ctx context.Context, sql string, args ...any) ([]Offer, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *repo) GetOffer(ctx context.Context, id string) (*Offer, error) {
	o, err := scanOffer(r.db.QueryRow(ctx, `
		SELECT `+offerColumns+`
		FROM offers o LEFT JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) CreateOffer(ctx context.Context, o *Offer) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Type == "" {
		o.Type = TypeDiscount
	}
	if o.Qty < 0 {
		o.Qty = 0
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO offers(id, restaurant_id, title, type, price_cents, original_price_cents,
		                   qty, pickup_start, pickup_end, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))`,
		o.ID, o.RestaurantID, o.Title, o.Type, o.PriceCents, o.OriginalPriceCents,
		o.Qty, o.PickupStart, o.PickupEnd, o.PhotoURL)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// UpdateOffer is the plain field-update path for owner edits. It builds the
// SET clause from the provided fields only and is deliberately unconditioned
// on the current quantity.
func (r *repo) UpdateOffer(ctx context.Context, id string, upd OfferUpdate) (*Offer, error) {
	set := make([]string, 0, 8)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Type != nil {
		add("type", *upd.Type)
	}
	if upd.PriceCents != nil {
		add("price_cents", *upd.PriceCents)
	}
	if upd.OriginalPriceCents != nil {
		add("original_price_cents", *upd.OriginalPriceCents)
	}
	if upd.Qty != nil {
		qty := *upd.Qty
		if qty < 0 {
			qty = 0
		}
		add("qty", qty)
	}
	if upd.PickupStart != nil {
		add("pickup_start", *upd.PickupStart)
	}
	if upd.PickupEnd != nil {
		add("pickup_end", *upd.PickupEnd)
	}
	if upd.PhotoURL != nil {
		add("photo_url", *upd.PhotoURL)
	}
	if len(set) > 0 {
		ct, err := r.db.Exec(ctx,
			`UPDATE offers SET `+strings.Join(set, ", ")+` WHERE id = $1`, args...)
		if err != nil {
			return nil, fmt.Errorf("update offer: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetOffer(ctx, id)
}

func (r *repo) DeleteOffer(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// OfferOwner resolves the user id owning the offer's restaurant, for the
// edit/delete permission check.
func (r *repo) OfferOwner(ctx context.Context, offerID string) (string, error) {
	var owner string
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(r.owner_user_id::text, '')
		FROM offers o JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = $1`, offerID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}
