package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewAuth("secret", "token", 7)

	tok, err := a.SignToken(&User{ID: "user-1", Role: RoleCustomer})
	require.NoError(t, err)

	claims, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleCustomer, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	a := NewAuth("secret", "token", 7)
	other := NewAuth("different", "token", 7)

	tok, err := a.SignToken(&User{ID: "user-1", Role: RoleCustomer})
	require.NoError(t, err)

	_, err = other.ParseToken(tok)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestParseUserMiddleware(t *testing.T) {
	a := NewAuth("secret", "token", 7)

	var got *Claims
	h := a.ParseUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	}))

	// valid cookie
	tok, err := a.SignToken(&User{ID: "user-1", Role: RoleRestaurant})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: tok})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)

	// garbage cookie stays anonymous instead of failing the request
	got = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "not-a-jwt"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	a := NewAuth("secret", "token", 7)
	h := a.ParseUser(RequireRole(RoleRestaurant, RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	send := func(role string, withCookie bool) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if withCookie {
			tok, err := a.SignToken(&User{ID: "u", Role: role})
			require.NoError(t, err)
			req.AddCookie(&http.Cookie{Name: "token", Value: tok})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("", false))
	assert.Equal(t, http.StatusForbidden, send(RoleCustomer, true))
	assert.Equal(t, http.StatusNoContent, send(RoleRestaurant, true))
	assert.Equal(t, http.StatusNoContent, send(RoleAdmin, true))
}
