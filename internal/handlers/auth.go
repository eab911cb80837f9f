// Package handlers holds the thin route handlers: validate input, call a
// collaborator, shape JSON. Business behavior lives behind the collaborators.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmtsu/supablog/internal/middleware"
	"github.com/jmtsu/supablog/internal/respond"
	"github.com/jmtsu/supablog/internal/supabase"
)

// Auth exposes the credential exchange routes, all delegated to the identity
// provider. Upstream failure detail is logged here and never echoed to the
// client.
type Auth struct {
	client *supabase.Client
	logger *slog.Logger
}

// NewAuth wires the auth routes to the identity provider client. A nil client
// (provider not configured) turns every route into a 500.
func NewAuth(client *supabase.Client, logger *slog.Logger) *Auth {
	return &Auth{client: client, logger: logger.With(slog.String("component", "auth_handler"))}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if h.client == nil {
		h.unconfigured(w, r)
		return
	}

	session, err := h.client.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logUpstream(r, "sign in failed", err)
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    session.User.ID,
			"email": session.User.Email,
		},
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
	})
}

// Signup handles POST /auth/signup.
func (h *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if h.client == nil {
		h.unconfigured(w, r)
		return
	}

	user, err := h.client.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logUpstream(r, "sign up failed", err)
		respond.Error(w, http.StatusBadRequest, "Failed to create user")
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
		},
		"message": "User created successfully",
	})
}

// Logout handles POST /auth/logout, revoking the session named by the bearer
// token when one is supplied.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		h.unconfigured(w, r)
		return
	}
	token := bearerToken(r)
	if err := h.client.SignOut(r.Context(), token); err != nil {
		h.logUpstream(r, "sign out failed", err)
		respond.Error(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Refresh handles POST /auth/refresh.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "Refresh token required")
		return
	}
	if h.client == nil {
		h.unconfigured(w, r)
		return
	}

	session, err := h.client.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logUpstream(r, "refresh failed", err)
		respond.Error(w, http.StatusUnauthorized, "Failed to refresh token")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
	})
}

func (h *Auth) unconfigured(w http.ResponseWriter, r *http.Request) {
	h.logger.Error("identity provider not configured",
		slog.String("request_id", middleware.RequestIDFrom(r.Context())))
	respond.Error(w, http.StatusInternalServerError, "Internal server error")
}

func (h *Auth) logUpstream(r *http.Request, message string, err error) {
	h.logger.Warn(message,
		slog.String("request_id", middleware.RequestIDFrom(r.Context())),
		slog.Any("error", err))
}

func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}
