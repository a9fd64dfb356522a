package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
	"github.com/mj1618/guidepilot/internal/platform"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Click at screen coordinates",
	Long: `Click at absolute screen coordinates, or with --client at coordinates
relative to the bound window's client area.`,
	RunE: runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
	clickCmd.Flags().Int("x", 0, "X coordinate")
	clickCmd.Flags().Int("y", 0, "Y coordinate")
	clickCmd.Flags().String("button", "left", "Mouse button: left, right, middle")
	clickCmd.Flags().Bool("client", false, "Coordinates are relative to the bound window's client area")
	clickCmd.MarkFlagRequired("x")
	clickCmd.MarkFlagRequired("y")
}

func runClick(cmd *cobra.Command, args []string) error {
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	buttonFlag, _ := cmd.Flags().GetString("button")
	client, _ := cmd.Flags().GetBool("client")

	button, err := platform.ParseMouseButton(buttonFlag)
	if err != nil {
		return err
	}
	hub, err := openHub(hubOptions{RequireBound: client})
	if err != nil {
		return err
	}
	defer hub.Close()

	if client {
		r, ok := hub.ClientRect()
		if !ok {
			return fmt.Errorf("bound window has no client area")
		}
		x, y = r.Left+x, r.Top+y
	}
	if err := hub.Click(x, y, button); err != nil {
		return err
	}
	return output.Print(output.ActionResult{OK: true, Action: "click", X: intPtr(x), Y: intPtr(y)})
}
