package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/capitalize-ai/omnilead/internal/middleware"
	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/service"
)

// AuthHandler handles login and user management endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login handles POST /api/auth/login. Both JSON and form-encoded
// credentials are accepted.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		if err := middleware.ValidateStruct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := h.service.Login(r.Context(), req)
	if errors.Is(err, service.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, tok)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(ctx, middleware.GetActor(ctx), req)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.Me(ctx, middleware.GetActor(ctx))
	if err != nil {
		writeServiceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
