package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/studydesk/api/cmd/configure/commands"
)

func main() {
	root := &cobra.Command{
		Use:   "studydesk-configure",
		Short: "Configuration tool for the StudyDesk API",
		Long:  "Manage OIDC providers, CORS origins and rate limits stored in the database.",
	}

	root.AddCommand(
		commands.NewOIDCCmd(),
		commands.NewCorsCmd(),
		commands.NewRatelimitCmd(),
		commands.NewListCmd(),
		commands.NewTestCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
