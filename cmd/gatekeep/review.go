package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/engine"
)

func reviewCmd() *cobra.Command {
	var (
		filePath    string
		contextText string
		deadline    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "review [content]",
		Short: "Run a parallel team review",
		Long: `Submit content to the review team. Every team persona reviews in
parallel with its own governance rules; their verdicts reconcile into
one decision. The command exits non-zero when the team blocks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentFromArgsOrFile(args, filePath)
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

			verdict, err := app.engine.Review(context.Background(), engine.ReviewRequest{
				Content:  content,
				Context:  contextText,
				Deadline: deadline,
			})
			if err != nil {
				return err
			}

			for _, r := range verdict.Results {
				p, _ := app.registry.Get(r.Persona)
				header := r.Persona
				if p != nil {
					header = fmt.Sprintf("%s %s", p.Emoji, p.Character)
				}
				fmt.Printf("=== %s [%s] ===\n", header, strings.ToUpper(string(r.Verdict)))
				if r.Err != "" {
					fmt.Printf("(%s)\n\n", r.Err)
					continue
				}
				fmt.Printf("%s\n\n", r.Output)
			}

			fmt.Printf("Team verdict: %s\n", strings.ToUpper(string(verdict.Combined)))
			if verdict.Combined == engine.CombinedBlock {
				return fmt.Errorf("review blocked")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read review content from a file")
	cmd.Flags().StringVarP(&contextText, "context", "C", "", "Supplementary context for the review")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Overall review deadline (default from config)")
	return cmd
}

// contentFromArgsOrFile resolves command content from positional args or
// a --file flag; exactly one source must be given.
func contentFromArgsOrFile(args []string, filePath string) (string, error) {
	if filePath != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("provide content as arguments or --file, not both")
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filePath, err)
		}
		return string(data), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("no content given; pass it as arguments or with --file")
	}
	return strings.Join(args, " "), nil
}
