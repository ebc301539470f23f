package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
)

// loginResponse is returned by a successful login.
type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *database.User `json:"user"`
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteBadRequest(w, "Email and password are required")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.FromContext(r.Context(), h.logger).Warn("login failed",
			slog.String("email", strings.ToLower(strings.TrimSpace(req.Email))),
			slog.String("ip", clientIP(r)),
		)
		WriteUnauthorized(w, "Invalid email or password")
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	claims, err := h.auth.ParseToken(token)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user})
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r)
	if !ok {
		WriteUnauthorized(w, "Authentication required")
		return
	}
	WriteOK(w, u)
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, users)
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	u, err := h.auth.CreateUser(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, u)
}

// DeleteUser handles DELETE /api/users/{id}
// Admins cannot delete themselves.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if u, ok := CurrentUser(r); ok && u.ID == id {
		WriteBadRequest(w, "Cannot delete your own account")
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w)
}
