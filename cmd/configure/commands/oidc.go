package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/models"
)

// NewOIDCCmd creates the command that registers or updates an OIDC provider.
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Register or update an OIDC provider for authentication. The provider name is a free-form identifier (e.g. 'cognito', 'okta', 'auth0').",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			repo := database.NewOIDCConfigRepository(db)
			ctx := context.Background()
			jwksURL := issuer + "/.well-known/jwks.json"

			if existing, err := repo.GetByProvider(ctx, provider); err == nil && existing != nil {
				existing.Issuer = issuer
				existing.ClientID = clientID
				existing.RedirectURI = redirectURI
				existing.JWKSUrl = &jwksURL
				existing.Domain = optional(domain)
				existing.ClientSecret = optional(clientSecret)
				if err := repo.Update(ctx, existing); err != nil {
					return fmt.Errorf("update oidc config: %w", err)
				}
				fmt.Printf("Updated OIDC configuration for provider: %s\n", provider)
				return nil
			}

			created := &models.OIDCConfig{
				ID:           uuid.New(),
				Provider:     provider,
				Issuer:       issuer,
				ClientID:     clientID,
				RedirectURI:  redirectURI,
				JWKSUrl:      &jwksURL,
				Domain:       optional(domain),
				ClientSecret: optional(clientSecret),
			}
			if err := repo.Create(ctx, created); err != nil {
				return fmt.Errorf("create oidc config: %w", err)
			}
			fmt.Printf("Created OIDC configuration for provider: %s\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain (optional, e.g. a Cognito custom domain like 'idp.studydesk.io')")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")

	return cmd
}

// optional maps an empty flag value to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
