package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/foodable/foodable-api/internal/catalog"
	"github.com/foodable/foodable-api/internal/identity"
	"github.com/foodable/foodable-api/internal/redisx"
)

type CatalogHandler struct {
	Repo  catalog.Repository
	Redis *redis.Client
}

type pickupJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type restaurantRefJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type offerJSON struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Type               string             `json:"type"`
	PriceCents         int                `json:"priceCents"`
	OriginalPriceCents int                `json:"originalPriceCents"`
	Pickup             pickupJSON         `json:"pickup"`
	Qty                int                `json:"qty"`
	PhotoURL           string             `json:"photoUrl,omitempty"`
	Restaurant         *restaurantRefJSON `json:"restaurant,omitempty"`
}

type restaurantJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Area      string    `json:"area,omitempty"`
	HeroURL   string    `json:"heroUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func mapOffer(o *catalog.Offer) offerJSON {
	out := offerJSON{
		ID:                 o.ID,
		Title:              o.Title,
		Type:               o.Type,
		PriceCents:         o.PriceCents,
		OriginalPriceCents: o.OriginalPriceCents,
		Pickup:             pickupJSON{Start: o.PickupStart, End: o.PickupEnd},
		Qty:                o.Qty,
		PhotoURL:           o.PhotoURL,
	}
	if o.RestaurantName != "" {
		out.Restaurant = &restaurantRefJSON{ID: o.RestaurantID, Name: o.RestaurantName}
	}
	return out
}

func mapRestaurant(r *catalog.Restaurant) restaurantJSON {
	return restaurantJSON{ID: r.ID, Name: r.Name, Area: r.Area, HeroURL: r.HeroURL, CreatedAt: r.CreatedAt}
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/restaurants", h.listRestaurants)
	r.Get("/restaurants/{id}", h.getRestaurant)
	r.Get("/restaurants/{id}/offers", h.listRestaurantOffers)
	r.Get("/offers", h.listOffers)
	r.Get("/offers/{offerID}", h.getOffer)

	owner := identity.RequireRole(identity.RoleRestaurant, identity.RoleAdmin)
	r.With(owner).Get("/me/restaurant", h.myRestaurant)
	r.With(owner).Post("/me/restaurant", h.upsertMyRestaurant)
	r.With(owner).Get("/me/offers", h.myOffers)
	r.With(owner).Post("/offers", h.createOffer)
	r.With(owner).Patch("/offers/{offerID}", h.updateOffer)
	r.With(owner).Delete("/offers/{offerID}", h.deleteOffer)
}

func (h *CatalogHandler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Repo.ListRestaurants(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	out := make([]restaurantJSON, 0, len(rows))
	for i := range rows {
		out = append(out, mapRestaurant(&rows[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rest, err := h.Repo.GetRestaurant(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, mapRestaurant(rest))
}

func (h *CatalogHandler) listRestaurantOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Repo.ListOffersByRestaurant(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	h.writeOfferList(w, rows)
}

func (h *CatalogHandler) listOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Repo.ListOffers(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	h.writeOfferList(w, rows)
}

func (h *CatalogHandler) writeOfferList(w http.ResponseWriter, rows []catalog.Offer) {
	out := make([]offerJSON, 0, len(rows))
	for i := range rows {
		out = append(out, mapOffer(&rows[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) getOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOfferCache, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Repo.GetOffer(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	body, _ := json.Marshal(mapOffer(o))
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLOfferCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *CatalogHandler) myRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := identity.UserFromContext(r.Context())
	rest, err := h.Repo.RestaurantByOwner(ctx, user.UserID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, mapRestaurant(rest))
}

type restaurantReq struct {
	Name    string `json:"name"`
	Area    string `json:"area"`
	HeroURL string `json:"heroUrl"`
}

func (h *CatalogHandler) upsertMyRestaurant(w http.ResponseWriter, r *http.Request) {
	var req restaurantReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := identity.UserFromContext(r.Context())
	rest := &catalog.Restaurant{
		OwnerUserID: user.UserID,
		Name:        req.Name,
		Area:        req.Area,
		HeroURL:     req.HeroURL,
	}
	if err := h.Repo.UpsertRestaurant(ctx, rest); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, mapRestaurant(rest))
}

func (h *CatalogHandler) myOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := identity.UserFromContext(r.Context())
	rest, err := h.Repo.RestaurantByOwner(ctx, user.UserID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusOK, []offerJSON{})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	rows, err := h.Repo.ListOffersByRestaurant(ctx, rest.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	h.writeOfferList(w, rows)
}

type offerReq struct {
	Title              string `json:"title"`
	Type               string `json:"type"`
	PriceCents         int    `json:"priceCents"`
	OriginalPriceCents int    `json:"originalPriceCents"`
	Qty                int    `json:"qty"`
	PickupStart        string `json:"pickupStart"`
	PickupEnd          string `json:"pickupEnd"`
	PhotoURL           string `json:"photoUrl"`
}

func (h *CatalogHandler) createOffer(w http.ResponseWriter, r *http.Request) {
	var req offerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}
	if req.Title == "" || req.PriceCents <= 0 || req.OriginalPriceCents <= 0 ||
		req.PickupStart == "" || req.PickupEnd == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	user := identity.UserFromContext(r.Context())
	rest, err := h.Repo.RestaurantByOwner(ctx, user.UserID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "no_restaurant"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	o := &catalog.Offer{
		RestaurantID:       rest.ID,
		Title:              req.Title,
		Type:               req.Type,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Qty:                req.Qty,
		PickupStart:        req.PickupStart,
		PickupEnd:          req.PickupEnd,
		PhotoURL:           req.PhotoURL,
	}
	if err := h.Repo.CreateOffer(ctx, o); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	o.RestaurantName = rest.Name
	writeJSON(w, http.StatusCreated, mapOffer(o))
}

type offerPatchReq struct {
	Title              *string `json:"title"`
	Type               *string `json:"type"`
	PriceCents         *int    `json:"priceCents"`
	OriginalPriceCents *int    `json:"originalPriceCents"`
	Qty                *int    `json:"qty"`
	PickupStart        *string `json:"pickupStart"`
	PickupEnd          *string `json:"pickupEnd"`
	PhotoURL           *string `json:"photoUrl"`
}

func (h *CatalogHandler) updateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerPatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}
	id := chi.URLParam(r, "offerID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if !h.canEdit(ctx, w, r, id) {
		return
	}

	o, err := h.Repo.UpdateOffer(ctx, id, catalog.OfferUpdate{
		Title:              req.Title,
		Type:               req.Type,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Qty:                req.Qty,
		PickupStart:        req.PickupStart,
		PickupEnd:          req.PickupEnd,
		PhotoURL:           req.PhotoURL,
	})
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOfferCache, id)).Err()
	}
	writeJSON(w, http.StatusOK, mapOffer(o))
}

func (h *CatalogHandler) deleteOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if !h.canEdit(ctx, w, r, id) {
		return
	}

	if err := h.Repo.DeleteOffer(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOfferCache, id)).Err()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// canEdit enforces ownership: admins may edit any offer, owners only their own.
func (h *CatalogHandler) canEdit(ctx context.Context, w http.ResponseWriter, r *http.Request, offerID string) bool {
	user := identity.UserFromContext(r.Context())
	if user.Role == identity.RoleAdmin {
		return true
	}
	owner, err := h.Repo.OfferOwner(ctx, offerID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Code: "not_found"})
		return false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return false
	}
	if owner != user.UserID {
		writeJSON(w, http.StatusForbidden, errorResp{Code: "forbidden"})
		return false
	}
	return true
}
