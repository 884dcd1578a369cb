package models

import (
	"time"

	"github.com/google/uuid"
)

// OIDCConfig is a stored OIDC provider registration.
type OIDCConfig struct {
	ID           uuid.UUID `json:"id"`
	Provider     string    `json:"provider"`
	Issuer       string    `json:"issuer"`
	Domain       *string   `json:"domain,omitempty"` // custom OAuth2 domain, if any
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"` // absent for public clients
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
