package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/engine"
)

func deployCmd() *cobra.Command {
	var (
		env         string
		filePath    string
		contextText string
	)

	cmd := &cobra.Command{
		Use:   "deploy [plan]",
		Short: "Run the deployment gate",
		Long: `Submit a deployment plan to the gate for an environment. Stages run
strictly in order, each seeing the previous stages' assessments; the
first blocked stage fails the gate and skips the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := contentFromArgsOrFile(args, filePath)
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.requireAPIKey(); err != nil {
				return err
			}

			result, err := app.engine.Deploy(context.Background(), engine.DeployRequest{
				Plan:        plan,
				Environment: env,
				Context:     contextText,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Deployment gate: %s\n\n", result.Environment)
			for _, stage := range result.Stages {
				fmt.Printf("--- %s [%s] ---\n", stage.Name, strings.ToUpper(string(stage.State)))
				if stage.Result == nil {
					fmt.Println("(skipped)")
					fmt.Println()
					continue
				}
				if stage.Result.Err != "" {
					fmt.Printf("(%s)\n\n", stage.Result.Err)
					continue
				}
				fmt.Printf("%s\n\n", stage.Result.Output)
			}

			fmt.Printf("Gate: %s\n", strings.ToUpper(string(result.Outcome)))
			if result.Outcome == engine.GateFailed {
				return fmt.Errorf("deployment gate failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "test", "Target environment (e.g. test, production)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the deployment plan from a file")
	cmd.Flags().StringVarP(&contextText, "context", "C", "", "Supplementary context for the gate")
	return cmd
}
