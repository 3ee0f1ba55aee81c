// Package main is the entry point for the qapplet CLI.
//
// Usage:
//
//	qapplet demo -c applet.yaml          # Run the demo applet on stdin/stdout
//	qapplet validate -c applet.yaml      # Validate a configuration file
//	qapplet send --color "#00FF00"       # Send a one-off signal
//	qapplet delete 42                    # Delete a signal by id
//	qapplet version                      # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qdesktop/qapplet/config"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "qapplet",
	Short: "Tools for Q desktop applets",
	Long: `qapplet runs, configures and debugs Q desktop applets.

Applets light keys on the keyboard by sending signals to the local signal
service (default http://localhost:27301, override with QAPPLET_BACKEND_URL).

Quick start:
  1. Start the signal service, or run: go run ./example/cmd/mockservice
  2. Run: qapplet send --color "#00FF00" --message "hello"
  3. Run the demo applet: qapplet demo -c applet.yaml

Example config:
  extensionId: demo
  geometry:
    width: 4
    height: 1
    origin: {x: 1, y: 1}
  applet:
    user:
      color: "#00FF00"`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this qapplet binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "qapplet %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger on stderr, or on the file named by
// QAPPLET_LOG_FILE, at the level from QAPPLET_LOG_LEVEL. The returned
// function closes the log file, if any.
func newLogger() (*slog.Logger, func(), error) {
	env := config.FromEnv()

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if env.LogFile != "" {
		f, err := os.OpenFile(env.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: env.LogLevel,
	}))
	return logger, closeFn, nil
}
