package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodable/foodable-api/internal/catalog"
	"github.com/foodable/foodable-api/internal/identity"
)

type fakeCatalog struct {
	listRestaurantsFunc   func(ctx context.Context) ([]catalog.Restaurant, error)
	getRestaurantFunc     func(ctx context.Context, id string) (*catalog.Restaurant, error)
	restaurantByOwnerFunc func(ctx context.Context, ownerUserID string) (*catalog.Restaurant, error)
	upsertRestaurantFunc  func(ctx context.Context, r *catalog.Restaurant) error
	listOffersFunc        func(ctx context.Context) ([]catalog.Offer, error)
	listByRestaurantFunc  func(ctx context.Context, restaurantID string) ([]catalog.Offer, error)
	getOfferFunc          func(ctx context.Context, id string) (*catalog.Offer, error)
	createOfferFunc       func(ctx context.Context, o *catalog.Offer) error
	updateOfferFunc       func(ctx context.Context, id string, upd catalog.OfferUpdate) (*catalog.Offer, error)
	deleteOfferFunc       func(ctx context.Context, id string) error
	offerOwnerFunc        func(ctx context.Context, offerID string) (string, error)
}

func (f *fakeCatalog) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	if f.listRestaurantsFunc != nil {
		return f.listRestaurantsFunc(ctx)
	}
	return nil, nil
}
func (f *fakeCatalog) GetRestaurant(ctx context.Context, id string) (*catalog.Restaurant, error) {
	if f.getRestaurantFunc != nil {
		return f.getRestaurantFunc(ctx, id)
	}
	return nil, catalog.ErrNotFound
}
func (f *fakeCatalog) RestaurantByOwner(ctx context.Context, ownerUserID string) (*catalog.Restaurant, error) {
	if f.restaurantByOwnerFunc != nil {
		return f.restaurantByOwnerFunc(ctx, ownerUserID)
	}
	return nil, catalog.ErrNotFound
}
func (f *fakeCatalog) UpsertRestaurant(ctx context.Context, r *catalog.Restaurant) error {
	if f.upsertRestaurantFunc != nil {
		return f.upsertRestaurantFunc(ctx, r)
	}
	return nil
}
func (f *fakeCatalog) ListOffers(ctx context.Context) ([]catalog.Offer, error) {
	if f.listOffersFunc != nil {
		return f.listOffersFunc(ctx)
	}
	return nil, nil
}
func (f *fakeCatalog) ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]catalog.Offer, error) {
	if f.listByRestaurantFunc != nil {
		return f.listByRestaurantFunc(ctx, restaurantID)
	}
	return nil, nil
}
func (f *fakeCatalog) GetOffer(ctx context.Context, id string) (*catalog.Offer, error) {
	if f.getOfferFunc != nil {
		return f.getOfferFunc(ctx, id)
	}
	return nil, catalog.ErrNotFound
}
func (f *fakeCatalog) CreateOffer(ctx context.Context, o *catalog.Offer) error {
	if f.createOfferFunc != nil {
		return f.createOfferFunc(ctx, o)
	}
	return nil
}
func (f *fakeCatalog) UpdateOffer(ctx context.Context, id string, upd catalog.OfferUpdate) (*catalog.Offer, error) {
	if f.updateOfferFunc != nil {
		return f.updateOfferFunc(ctx, id, upd)
	}
	return nil, catalog.ErrNotFound
}
func (f *fakeCatalog) DeleteOffer(ctx context.Context, id string) error {
	if f.deleteOfferFunc != nil {
		return f.deleteOfferFunc(ctx, id)
	}
	return nil
}
func (f *fakeCatalog) OfferOwner(ctx context.Context, offerID string) (string, error) {
	if f.offerOwnerFunc != nil {
		return f.offerOwnerFunc(ctx, offerID)
	}
	return "", catalog.ErrNotFound
}

func setupCatalog(t *testing.T, repo catalog.Repository) (http.Handler, *identity.Auth) {
	t.Helper()
	auth := testAuth()
	r := NewRouter()
	(&CatalogHandler{Repo: repo}).Register(r)
	return auth.ParseUser(r), auth
}

func TestListOffersShape(t *testing.T) {
	repo := &fakeCatalog{
		listOffersFunc: func(ctx context.Context) ([]catalog.Offer, error) {
			return []catalog.Offer{{
				ID:                 "offer-1",
				RestaurantID:       "rest-1",
				RestaurantName:     "Tokyo Bites",
				Title:              "Sushi Rescue Box",
				Type:               catalog.TypeMystery,
				PriceCents:         800,
				OriginalPriceCents: 2200,
				Qty:                3,
				PickupStart:        "17:30",
				PickupEnd:          "19:00",
			}}, nil
		},
	}
	srv, _ := setupCatalog(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/offers", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "offer-1", out[0]["id"])
	assert.Equal(t, "mystery", out[0]["type"])
	assert.Equal(t, float64(800), out[0]["priceCents"])
	pickup, ok := out[0]["pickup"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "17:30", pickup["start"])
	rest, ok := out[0]["restaurant"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tokyo Bites", rest["name"])
}

func TestGetOfferNotFound(t *testing.T) {
	srv, _ := setupCatalog(t, &fakeCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/offers/ghost", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOfferRequiresOwnerRole(t *testing.T) {
	srv, auth := setupCatalog(t, &fakeCatalog{})
	body := `{"title":"Box","priceCents":500,"originalPriceCents":1500,"pickupStart":"17:00","pickupEnd":"19:00"}`

	// anonymous
	req := httptest.NewRequest(http.MethodPost, "/offers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// customer role
	req = httptest.NewRequest(http.MethodPost, "/offers", strings.NewReader(body))
	withSession(t, req, auth, "user-1", identity.RoleCustomer)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOffer(t *testing.T) {
	var created *catalog.Offer
	repo := &fakeCatalog{
		restaurantByOwnerFunc: func(ctx context.Context, ownerUserID string) (*catalog.Restaurant, error) {
			require.Equal(t, "owner-1", ownerUserID)
			return &catalog.Restaurant{ID: "rest-1", Name: "Crust & Crumb", OwnerUserID: ownerUserID}, nil
		},
		createOfferFunc: func(ctx context.Context, o *catalog.Offer) error {
			o.ID = "offer-1"
			created = o
			return nil
		},
	}
	srv, auth := setupCatalog(t, repo)

	body := `{"title":"Bakery Mixed Bag","type":"donation","priceCents":500,"originalPriceCents":1600,"qty":4,"pickupStart":"16:00","pickupEnd":"18:00"}`
	req := httptest.NewRequest(http.MethodPost, "/offers", strings.NewReader(body))
	withSession(t, req, auth, "owner-1", identity.RoleRestaurant)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, created)
	assert.Equal(t, "rest-1", created.RestaurantID)
	assert.Equal(t, 4, created.Qty)
}

func TestCreateOfferValidation(t *testing.T) {
	srv, auth := setupCatalog(t, &fakeCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/offers", strings.NewReader(`{"title":""}`))
	withSession(t, req, auth, "owner-1", identity.RoleRestaurant)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOfferOwnershipCheck(t *testing.T) {
	repo := &fakeCatalog{
		offerOwnerFunc: func(ctx context.Context, offerID string) (string, error) {
			return "owner-1", nil
		},
		updateOfferFunc: func(ctx context.Context, id string, upd catalog.OfferUpdate) (*catalog.Offer, error) {
			require.NotNil(t, upd.Qty)
			return &catalog.Offer{ID: id, Qty: *upd.Qty, Type: catalog.TypeDiscount}, nil
		},
	}
	srv, auth := setupCatalog(t, repo)

	// a different owner is rejected
	req := httptest.NewRequest(http.MethodPatch, "/offers/offer-1", strings.NewReader(`{"qty":9}`))
	withSession(t, req, auth, "owner-2", identity.RoleRestaurant)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// the owner may edit, including setting qty directly
	req = httptest.NewRequest(http.MethodPatch, "/offers/offer-1", strings.NewReader(`{"qty":9}`))
	withSession(t, req, auth, "owner-1", identity.RoleRestaurant)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// admin may edit anything
	req = httptest.NewRequest(http.MethodPatch, "/offers/offer-1", strings.NewReader(`{"qty":0}`))
	withSession(t, req, auth, "admin-1", identity.RoleAdmin)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteOffer(t *testing.T) {
	deleted := ""
	repo := &fakeCatalog{
		offerOwnerFunc: func(ctx context.Context, offerID string) (string, error) {
			return "owner-1", nil
		},
		deleteOfferFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	srv, auth := setupCatalog(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/offers/offer-1", nil)
	withSession(t, req, auth, "owner-1", identity.RoleRestaurant)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "offer-1", deleted)
}
