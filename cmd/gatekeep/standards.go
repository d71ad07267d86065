package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/assets"
	"github.com/gatekeep-dev/gatekeep/config"
)

func standardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standards",
		Short: "Inspect regulatory standards",
	}
	cmd.AddCommand(standardsStatusCmd())
	return cmd
}

func standardsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show installed standard versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := assets.LoadVersions(config.FindProjectRoot())
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(versions))
			for id := range versions {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STANDARD\tINSTALLED\tLATEST\tSTATUS")
			for _, id := range ids {
				v := versions[id]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, orDash(v.Installed), orDash(v.Latest), v.Status)
			}
			return w.Flush()
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
