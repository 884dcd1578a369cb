package oidc

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/studydesk/api/internal/models"
)

// Client drives the OAuth2 authorization-code flow for a stored provider
// registration. Public clients (no secret) are supported.
type Client struct {
	config *oauth2.Config
}

// NewClient builds an OAuth2 client from a provider registration. Endpoints
// derive from the issuer the same way GetLoginConfig's fallback does.
func NewClient(oidcConfig *models.OIDCConfig) *Client {
	var secret string
	if oidcConfig.ClientSecret != nil {
		secret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: secret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  issuerPath(oidcConfig.Issuer, "oauth2/authorize"),
			TokenURL: issuerPath(oidcConfig.Issuer, "oauth2/token"),
		},
	}}
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the provider authorization URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
