package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"flowboard/internal/adapters/api/middleware"
	"flowboard/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table with each route's guard classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
			gin.SetMode(gin.ReleaseMode)

			cfg := config.LoadConfig()
			router, policy := newRouter(cfg)
			return printRoutes(cmd.OutOrStdout(), router.Routes(), policy)
		},
	}
}

func printRoutes(out io.Writer, routes gin.RoutesInfo, policy *middleware.PathPolicy) error {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tACCESS\tON MISSING SESSION")
	for _, route := range routes {
		access := policy.Classify(route.Path)
		onMissing := "-"
		if access == middleware.Protected {
			onMissing = "redirect to login"
			if policy.IsAPI(route.Path) {
				onMissing = "401"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", route.Method, route.Path, access, onMissing)
	}
	return w.Flush()
}
