package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/api/middleware"
	"github.com/example/grocery-sync/internal/auth"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authn  *auth.MockAuthenticator
	logger *zap.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(authn *auth.MockAuthenticator, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{authn: authn, logger: logger.Named("auth")}
}

// Login exchanges credentials for a session token
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	session, err := h.authn.Login(r.Context(), creds)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	case err != nil:
		h.logger.Error("issuing session token", zap.Error(err))
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("login", zap.String("user_id", session.User.ID))
	respondJSON(w, http.StatusOK, session)
}

// Logout revokes the token the request was authenticated with
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	_ = h.authn.Logout(r.Context(), middleware.GetToken(r.Context()))
	h.logger.Info("logout", zap.String("user_id", middleware.GetUserID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, claims.User())
}
