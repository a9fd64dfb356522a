package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
)

var shortcutCmd = &cobra.Command{
	Use:   "shortcut [name]",
	Short: "Teleport through the shortcut panel",
	Long: `Open the shortcut panel, click the configured panel point, type [name]
and confirm, wait out the teleport, then optionally run a travel command
given with --then or --x/--y.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShortcut,
}

func init() {
	rootCmd.AddCommand(shortcutCmd)
	shortcutCmd.Flags().String("then", "", "Travel command to run after the teleport")
	shortcutCmd.Flags().Int("x", 0, "Destination X for the follow-on travel")
	shortcutCmd.Flags().Int("y", 0, "Destination Y for the follow-on travel")
}

func runShortcut(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	then, _ := cmd.Flags().GetString("then")
	if then == "" {
		var err error
		if then, err = travelCommand(cmd, nil); err != nil {
			return err
		}
	}

	hub, err := openHub(hubOptions{RequireBound: true})
	if err != nil {
		return err
	}
	defer hub.Close()

	r, err := hub.RunShortcut(name, then)
	if err != nil {
		return err
	}
	return output.Print(r)
}
