package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

//	@title			Flowboard API
//	@version		1.0
//	@description	Session handling and upstream proxy for the Flowboard project-management front end

//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT

//	@host		localhost:3000
//	@BasePath	/

// Version information set at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "flowboard",
		Short: "Project-management front end and session proxy",
		Long: `Flowboard serves the dashboard, kanban board and workflow pages,
manages the access/refresh cookie pair and proxies resource calls
to the backend API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
