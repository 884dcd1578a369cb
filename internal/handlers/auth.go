package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/studydesk/api/internal/middleware"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/services/oidc"
)

// OIDCProviderInterface resolves stored provider registrations for the auth
// endpoints.
type OIDCProviderInterface interface {
	GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error)
	GetLoginConfig(ctx context.Context, providerName string) (*oidc.LoginConfig, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider OIDCProviderInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oidcProvider OIDCProviderInterface) *AuthHandler {
	return &AuthHandler{oidcProvider: oidcProvider}
}

// RegisterRoutes registers auth routes. public carries the OIDC flow
// endpoints reachable before login; protected requires an authenticated user.
func (h *AuthHandler) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/login", h.GetOIDCLogin).Methods("GET")
	public.HandleFunc("/authorize", h.GetAuthorizeURL).Methods("GET")
	protected.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin returns OIDC configuration for the frontend login flow.
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context(), "cognito")
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// AuthorizeURLResponse carries the provider redirect for a login attempt.
type AuthorizeURLResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// GetAuthorizeURL builds the provider authorization URL with a fresh state
// value. The frontend stores the state and sends the user to the URL.
func (h *AuthHandler) GetAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.oidcProvider.GetConfig(r.Context(), "cognito")
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	state, err := randomState()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate state")
		return
	}

	client := oidc.NewClient(cfg)
	respondJSON(w, http.StatusOK, AuthorizeURLResponse{
		AuthorizationURL: client.AuthCodeURL(state),
		State:            state,
	})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
