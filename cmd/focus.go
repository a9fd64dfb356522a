package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
)

// FocusResult is the output of a successful focus.
type FocusResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	Window string `yaml:"window,omitempty" json:"window,omitempty"`
}

var focusCmd = &cobra.Command{
	Use:   "focus [title]",
	Short: "Bring the bound window to the foreground",
	Long: `Restore and focus the bound window. With --wait, instead wait until a
window whose title contains [title] becomes active.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
	focusCmd.Flags().Duration("wait", 0, "Wait up to this long for the window to become active instead of focusing it")
	focusCmd.Flags().Duration("poll", 100*time.Millisecond, "Polling interval for --wait")
}

func runFocus(cmd *cobra.Command, args []string) error {
	title := appConfig.Window.Title
	if len(args) > 0 {
		title = args[0]
	}
	wait, _ := cmd.Flags().GetDuration("wait")
	poll, _ := cmd.Flags().GetDuration("poll")

	hub, err := openHub(hubOptions{})
	if err != nil {
		return err
	}
	defer hub.Close()

	if wait > 0 {
		if title == "" {
			return fmt.Errorf("--wait needs a title argument or --window")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), wait)
		defer cancel()
		if !hub.WaitActive(ctx, title, poll) {
			return fmt.Errorf("window %q did not become active within %s", title, wait)
		}
		return output.Print(FocusResult{OK: true, Action: "wait", Window: title})
	}

	if title == "" || !hub.Bind(title) {
		return errNoWindow(title)
	}
	if !hub.EnsureFocus() {
		return fmt.Errorf("window %q could not be brought to the foreground", title)
	}
	b, _ := hub.Bound()
	return output.Print(FocusResult{OK: true, Action: "focus", Window: b.Title})
}
