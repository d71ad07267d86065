package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatekeep-dev/gatekeep/assets"
	"github.com/gatekeep-dev/gatekeep/persona"
	"github.com/gatekeep-dev/gatekeep/policy"
)

func checkCmd() *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate governance configuration",
		Long: `Resolve every persona's effective rule set and report configuration
errors: malformed YAML, dangling policy references, missing standards.
With --watch, re-validates whenever governance files change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := runCheck(app); err != nil && !watch {
				return err
			}
			if !watch {
				return nil
			}

			if app.root == "" {
				return fmt.Errorf("--watch needs a project root (gatekeep.yaml or governance/)")
			}

			watcher, err := policy.NewWatcher(app.root, debounce, app.logger)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := watcher.Start(ctx); err != nil {
				return err
			}
			fmt.Println("Watching for governance changes (Ctrl-C to stop)...")

			for {
				select {
				case ev, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					fmt.Printf("\nChanged: %v\n", ev.Paths)
					// Reload from disk so edits to personas are seen too.
					registry, err := persona.LoadRegistry(assets.Bundled(), app.root, app.logger)
					if err != nil {
						fmt.Printf("FAIL: %v\n", err)
						continue
					}
					app.registry = registry
					if err := runCheck(app); err != nil {
						fmt.Printf("FAIL: %v\n", err)
					}
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-validate on governance file changes")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before re-validating")
	return cmd
}

// runCheck resolves every persona and reports the failures.
func runCheck(app *app) error {
	resolver := policy.NewResolver(assets.Bundled(), app.root, app.logger)

	failures := 0
	for _, p := range app.registry.List() {
		rules, err := resolver.Resolve(p)
		if err != nil {
			failures++
			fmt.Printf("FAIL %s: %v\n", p.Name, err)
			continue
		}
		fmt.Printf("ok   %s: %d policies, %d standards\n",
			p.Name, len(rules.Policies), len(rules.Standards))
	}

	if failures > 0 {
		return fmt.Errorf("%d persona(s) failed validation", failures)
	}
	fmt.Println("All personas resolve cleanly.")
	return nil
}
