package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/models"
)

// Provider resolves stored OIDC provider registrations into login endpoints.
type Provider struct {
	repo *database.OIDCConfigRepository
}

// NewProvider creates a provider backed by the config repository.
func NewProvider(repo *database.OIDCConfigRepository) *Provider {
	return &Provider{repo: repo}
}

// GetConfig retrieves the stored registration for a provider name.
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// LoginConfig is what the frontend needs to start an OIDC login.
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig resolves the OAuth2 endpoints for a provider: discovery
// document first, issuer-derived paths as fallback. Cognito with a
// configured domain overrides both, since its OAuth2 flows only work on
// domain-based endpoints.
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	authEndpoint := discoverAuthEndpoint(config.Issuer)
	if authEndpoint == "" {
		authEndpoint = issuerPath(config.Issuer, "oauth2/authorize")
	}
	tokenEndpoint := issuerPath(config.Issuer, "oauth2/token")

	if base := cognitoDomainBase(config); base != "" {
		authEndpoint = base + "/oauth2/authorize"
		tokenEndpoint = base + "/oauth2/token"
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}

// discoverAuthEndpoint reads the authorization endpoint from the issuer's
// discovery document; empty on any failure.
func discoverAuthEndpoint(issuer string) string {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(issuer + "/.well-known/openid-configuration")
	if err != nil || resp.StatusCode != http.StatusOK {
		return ""
	}
	defer resp.Body.Close()

	var discovery struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return ""
	}
	return discovery.AuthorizationEndpoint
}

func issuerPath(issuer, path string) string {
	return strings.TrimSuffix(issuer, "/") + "/" + path
}

// cognitoDomainBase returns the https base URL for a Cognito registration
// with an explicit OAuth2 domain, or "" when issuer-based endpoints apply.
func cognitoDomainBase(config *models.OIDCConfig) string {
	if config.Domain == nil || *config.Domain == "" || !strings.Contains(config.Issuer, "cognito-idp.") {
		return ""
	}
	domain := *config.Domain
	if strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
