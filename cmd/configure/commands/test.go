package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/studydesk/api/internal/database"
)

// NewTestCmd creates the command that probes a provider's OIDC endpoints.
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Validate a stored OIDC provider by probing its discovery and JWKS endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			config, err := database.NewOIDCConfigRepository(db).GetByProvider(context.Background(), provider)
			if err != nil {
				return fmt.Errorf("get oidc config: %w", err)
			}

			fmt.Printf("Testing OIDC configuration for provider: %s\n", provider)
			fmt.Printf("Issuer: %s\n", config.Issuer)

			client := &http.Client{Timeout: 10 * time.Second}

			if err := probeEndpoint(client, "discovery", config.Issuer+"/.well-known/openid-configuration"); err != nil {
				return err
			}
			if config.JWKSUrl != nil {
				if err := probeEndpoint(client, "JWKS", *config.JWKSUrl); err != nil {
					return err
				}
			}

			fmt.Println("\n✓ OIDC configuration test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")

	return cmd
}

func probeEndpoint(client *http.Client, name, url string) error {
	fmt.Printf("\nTesting %s endpoint: %s\n", name, url)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("reach %s endpoint: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s endpoint returned status: %d", name, resp.StatusCode)
	}
	fmt.Printf("✓ %s endpoint is accessible\n", name)
	return nil
}
