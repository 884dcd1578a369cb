package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/studydesk/api/internal/database"
)

// NewListCmd creates the command that prints configured OIDC providers.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			configs, err := database.NewOIDCConfigRepository(db).GetAll(context.Background())
			if err != nil {
				return fmt.Errorf("list oidc configs: %w", err)
			}
			if len(configs) == 0 {
				fmt.Println("No OIDC providers configured")
				return nil
			}

			fmt.Println("Configured OIDC providers:")
			for _, c := range configs {
				fmt.Printf("  - Provider: %s\n", c.Provider)
				fmt.Printf("    Issuer: %s\n", c.Issuer)
				fmt.Printf("    Client ID: %s\n", c.ClientID)
				fmt.Printf("    Redirect URI: %s\n", c.RedirectURI)
				if c.JWKSUrl != nil {
					fmt.Printf("    JWKS URL: %s\n", *c.JWKSUrl)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
