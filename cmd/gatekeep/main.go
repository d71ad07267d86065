// Package main provides the gatekeep binary entry point.
// Gatekeep routes developer questions to role-specialized AI personas,
// each bound to the governance policies and regulatory standards its
// role enforces.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/gatekeep-dev/gatekeep/llm/providers"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "gatekeep"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Governed AI persona consultations",
		Long: `Gatekeep forwards developer questions to role-specialized AI personas.

Every consultation passes through the persona governance engine: the
persona's governance policies and regulatory standards are resolved,
composed into its system prompt, and enforced in its answer.

Modes:
- ask: consult a single persona (routed by keywords when unnamed)
- review: parallel team review with a reconciled verdict
- deploy: sequential deployment gate with fail-fast stages`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		askCmd(),
		reviewCmd(),
		deployCmd(),
		routeCmd(),
		personasCmd(),
		standardsCmd(),
		checkCmd(),
		initCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
