package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foodable/foodable-api/internal/identity"
)

type AuthHandler struct {
	Users identity.Repository
	Auth  *identity.Auth
}

type signupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userJSON struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

func mapUser(u *identity.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/signin", h.signin)
	r.Post("/auth/signout", h.signout)
	r.With(identity.RequireUser).Get("/me", h.me)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}
	// Self-service signup never grants admin.
	role := identity.RoleCustomer
	if req.Role == identity.RoleRestaurant {
		role = identity.RoleRestaurant
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u := &identity.User{Email: req.Email, PasswordHash: hash, Name: req.Name, Role: role}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, errorResp{Code: "email_taken"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	h.issueSession(w, u)
}

func (h *AuthHandler) signin(w http.ResponseWriter, r *http.Request) {
	var req signinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "validation_error"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, identity.ErrNotFound) || (err == nil && !identity.CheckPassword(u.PasswordHash, req.Password)) {
		writeJSON(w, http.StatusUnauthorized, errorResp{Code: "invalid_credentials"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}

	h.issueSession(w, u)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, u *identity.User) {
	token, err := h.Auth.SignToken(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	h.Auth.SetCookie(w, token)
	writeJSON(w, http.StatusOK, mapUser(u))
}

func (h *AuthHandler) signout(w http.ResponseWriter, r *http.Request) {
	h.Auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	claims := identity.UserFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, errorResp{Code: "unauthenticated"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, mapUser(u))
}
