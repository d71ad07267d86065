package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [question]",
		Short: "Show which persona a question routes to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			name := app.engine.Route(strings.Join(args, " "))
			p, ok := app.registry.Get(name)
			if !ok {
				return fmt.Errorf("router selected unknown persona %q", name)
			}
			fmt.Printf("%s %s (%s)\n", p.Emoji, p.Name, p.Role)
			return nil
		},
	}
}
