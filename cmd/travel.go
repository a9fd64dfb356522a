package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/output"
)

var travelCmd = &cobra.Command{
	Use:   "travel [command]",
	Short: "Type a travel command into the game chat",
	Long: `Open the chat, type the command, submit it and close the chat.
Pass the command text, or --x and --y to render the configured template.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTravel,
}

func init() {
	rootCmd.AddCommand(travelCmd)
	travelCmd.Flags().Int("x", 0, "Destination X")
	travelCmd.Flags().Int("y", 0, "Destination Y")
}

// travelCommand resolves the command from args or --x/--y.
func travelCommand(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if cmd.Flags().Changed("x") && cmd.Flags().Changed("y") {
		x, _ := cmd.Flags().GetInt("x")
		y, _ := cmd.Flags().GetInt("y")
		ex := intent.Extractor{CommandTemplate: appConfig.Macro.CommandTemplate}
		return ex.Extract(fmt.Sprintf("go to [%d,%d]", x, y)).RawCommandText, nil
	}
	return "", nil
}

func runTravel(cmd *cobra.Command, args []string) error {
	command, err := travelCommand(cmd, args)
	if err != nil {
		return err
	}
	if command == "" {
		return fmt.Errorf("specify a command or --x and --y")
	}

	hub, err := openHub(hubOptions{RequireBound: true})
	if err != nil {
		return err
	}
	defer hub.Close()

	r, err := hub.RunTravel(command)
	if err != nil {
		return err
	}
	return output.Print(r)
}
