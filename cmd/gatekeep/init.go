package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/assets"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a gatekeep project",
		Long: `Copy the bundled personas, governance policies, and standards into a
project directory, alongside a starter gatekeep.yaml and .env.example.
Existing files are left untouched, so init is safe to re-run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := "."
			if len(args) == 1 {
				dst = args[0]
			}
			if err := os.MkdirAll(dst, 0755); err != nil {
				return err
			}

			result, err := assets.Scaffold(dst)
			if err != nil {
				return err
			}

			for _, name := range result.Created {
				fmt.Printf("created %s\n", name)
			}
			for _, name := range result.Skipped {
				fmt.Printf("skipped %s (exists)\n", name)
			}
			fmt.Println("\nNext: copy .env.example to .env and set OPENROUTER_API_KEY.")
			return nil
		},
	}
}
