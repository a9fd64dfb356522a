package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible windows",
	Long:  "List visible top-level windows with their handles and titles, in OS enumeration order.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("filter", "", "Only windows whose title contains this text")
}

func runList(cmd *cobra.Command, args []string) error {
	hub, err := openHub(hubOptions{})
	if err != nil {
		return err
	}
	defer hub.Close()

	filter, _ := cmd.Flags().GetString("filter")
	windows, err := hub.ListWindows()
	if err != nil {
		return err
	}
	return output.Print(filterWindows(windows, filter))
}
