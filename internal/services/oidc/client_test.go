package oidc

import (
	"strings"
	"testing"

	"github.com/studydesk/api/internal/models"
)

func TestNewClient_WithSecret(t *testing.T) {
	t.Parallel()

	secret := "confidential"
	client := NewClient(&models.OIDCConfig{
		ClientID:     "studydesk-web",
		ClientSecret: &secret,
		RedirectURI:  "http://localhost:3000/callback",
		Issuer:       "https://idp.studydesk.io",
	})

	if client == nil || client.config == nil {
		t.Fatal("Expected a configured client")
	}
	if client.config.ClientID != "studydesk-web" {
		t.Errorf("Expected ClientID 'studydesk-web', got '%s'", client.config.ClientID)
	}
	if client.config.ClientSecret != secret {
		t.Errorf("Expected the secret to be carried over, got '%s'", client.config.ClientSecret)
	}
	if client.config.RedirectURL != "http://localhost:3000/callback" {
		t.Errorf("Unexpected redirect URL '%s'", client.config.RedirectURL)
	}
}

func TestNewClient_PublicClient(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "studydesk-web",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://idp.studydesk.io",
	})

	if client.config.ClientSecret != "" {
		t.Errorf("Expected empty secret for a public client, got '%s'", client.config.ClientSecret)
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "studydesk-web",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://idp.studydesk.io",
	})

	url := client.AuthCodeURL("state-123")

	if !strings.HasPrefix(url, "https://idp.studydesk.io/oauth2/authorize") {
		t.Errorf("Expected the issuer's authorize endpoint, got %s", url)
	}
	if !strings.Contains(url, "state=state-123") {
		t.Errorf("Expected the state parameter in the URL, got %s", url)
	}
	if !strings.Contains(url, "client_id=studydesk-web") {
		t.Errorf("Expected the client id in the URL, got %s", url)
	}
}
