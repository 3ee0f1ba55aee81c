package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qdesktop/qapplet/config"
)

// validateCmd validates a config file without running an applet.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an applet configuration file without running the applet.

The file format is chosen by extension (.yaml, .yml, .json, .toml).
Environment variables (${VAR} and ${VAR:-default}) are expanded before
parsing, and the geometry is validated.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  qapplet validate -c applet.yaml
  qapplet validate --config applet.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	root, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	snap, err := config.Normalize(root)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	g := snap.Geometry()
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  Extension:  %s\n", snap.ExtensionID())
	_, _ = fmt.Fprintf(out, "  Geometry:   %dx%d at %d,%d\n", g.Width, g.Height, g.Origin.X, g.Origin.Y)
	_, _ = fmt.Fprintf(out, "  Storage:    %s\n", snap.StorageLocation())
	_, _ = fmt.Fprintf(out, "  Dev mode:   %t\n", snap.DevMode())
	_, _ = fmt.Fprintf(out, "  Values:     %d\n", len(snap.Values()))

	return nil
}
