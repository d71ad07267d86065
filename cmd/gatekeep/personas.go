package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func personasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the available personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHARACTER\tROLE\tMODEL\tGATE\tKEYWORDS")
			for _, p := range app.registry.List() {
				model := p.Model
				if p.Consensus() {
					model = "consensus(" + strings.Join(p.Models, ",") + ")"
				}
				gate := ""
				if p.GateRole {
					gate = "yes"
				}
				fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\t%s\n",
					p.Emoji, p.Name, p.Character, p.Role, model, gate,
					strings.Join(p.Keywords, ", "))
			}
			return w.Flush()
		},
	}
}
