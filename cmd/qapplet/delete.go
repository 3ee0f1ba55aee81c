package main

import (
	"fmt"

	"github.com/spf13/cobra"

	applet "github.com/qdesktop/qapplet"
	"github.com/qdesktop/qapplet/config"
)

// deleteCmd removes a signal by id.
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a signal by id",
	Long: `Delete a previously sent signal, clearing its keys.

Example:
  qapplet delete 42`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().String("backend", "", "signal service base URL (default $QAPPLET_BACKEND_URL or "+config.DefaultBackendURL+")")
}

func runDelete(cmd *cobra.Command, args []string) error {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = config.FromEnv().BackendURL
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	client := applet.NewClient(backend, logger)
	defer client.Close()

	if _, err := client.DeleteID(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete signal: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signal %s deleted\n", args[0])
	return nil
}
