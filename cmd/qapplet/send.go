package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	applet "github.com/qdesktop/qapplet"
	"github.com/qdesktop/qapplet/config"
)

// sendCmd sends a single signal outside any applet lifecycle.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a one-off signal",
	Long: `Send a single signal to the signal service and print its id.

The signal lights a width x height block of keys starting at --x,--y with
one color and effect. Use --action ERROR to send an error signal with the
message as its error text.

Example:
  qapplet send --color "#00FF00" --message "deploy finished"
  qapplet send --x 3 --y 2 --width 2 --color "#0000FF" --effect BLINK`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	f := sendCmd.Flags()
	f.String("backend", "", "signal service base URL (default $QAPPLET_BACKEND_URL or "+config.DefaultBackendURL+")")
	f.String("color", "#FFFFFF", "key color as #RRGGBB")
	f.String("effect", string(applet.EffectSetColor), "key effect, e.g. SET_COLOR, BLINK, BREATHE")
	f.String("action", string(applet.ActionDraw), "signal action: DRAW, ERROR or FLASH")
	f.Int("x", 0, "x coordinate of the first key")
	f.Int("y", 0, "y coordinate of the first key")
	f.Int("width", 1, "number of keys across")
	f.Int("height", 1, "number of keys down")
	f.String("name", applet.DefaultSignalName, "signal name")
	f.StringP("message", "m", "", "signal message")
	f.String("extension-id", "", "client name reported to the signal service")
	f.Bool("sound", false, "play the notification sound")
}

func runSend(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	backend, _ := f.GetString("backend")
	color, _ := f.GetString("color")
	effect, _ := f.GetString("effect")
	action, _ := f.GetString("action")
	x, _ := f.GetInt("x")
	y, _ := f.GetInt("y")
	width, _ := f.GetInt("width")
	height, _ := f.GetInt("height")
	name, _ := f.GetString("name")
	message, _ := f.GetString("message")
	extensionID, _ := f.GetString("extension-id")
	sound, _ := f.GetBool("sound")

	if width < 1 || height < 1 {
		return fmt.Errorf("width and height must be at least 1")
	}
	if backend == "" {
		backend = config.FromEnv().BackendURL
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	opts := []applet.SignalOption{
		applet.WithAction(applet.Action(strings.ToUpper(action))),
		applet.WithName(name),
		applet.WithMessage(message),
		applet.WithOrigin(x, y),
		applet.WithExtensionID(extensionID),
		applet.WithMuted(!sound),
	}
	if strings.EqualFold(action, string(applet.ActionError)) && message != "" {
		opts = append(opts, applet.WithErrors(message))
	}
	sig := applet.NewSignal(
		applet.FillGrid(width, height, applet.NewPoint(color, applet.Effect(strings.ToUpper(effect)))),
		opts...,
	)

	client := applet.NewClient(backend, logger)
	defer client.Close()

	result, err := client.Send(cmd.Context(), sig)
	if err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signal sent: id %d (%dms)\n", sig.ID, result.Latency.Milliseconds())
	return nil
}
