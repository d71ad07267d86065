package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/engine"
)

func askCmd() *cobra.Command {
	var (
		personaName string
		contextText string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Consult a single persona",
		Long: `Ask a question of one persona. With --persona the named persona
answers; otherwise the router picks the best match by keywords.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.requireAPIKey(); err != nil {
				return err
			}

			result, err := app.engine.Ask(context.Background(), engine.AskRequest{
				Persona:  personaName,
				Question: strings.Join(args, " "),
				Context:  contextText,
			})
			if err != nil {
				return err
			}

			if result.Routed {
				fmt.Printf("(routed to %s)\n\n", result.Persona.Name)
			}
			fmt.Printf("%s %s (%s)\n\n", result.Persona.Emoji, result.Persona.Character, result.Persona.Role)
			fmt.Println(result.Response.Content)
			printUsage(result.Response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "p", "", "Persona to consult (default: routed by question)")
	cmd.Flags().StringVarP(&contextText, "context", "C", "", "Supplementary context for the question")
	return cmd
}
