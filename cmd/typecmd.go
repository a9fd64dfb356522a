package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
)

// TypeResult is the output of a successful type command.
type TypeResult struct {
	OK     bool   `yaml:"ok"             json:"ok"`
	Action string `yaml:"action"         json:"action"`
	Text   string `yaml:"text,omitempty" json:"text,omitempty"`
	Key    string `yaml:"key,omitempty"  json:"key,omitempty"`
}

var typeCmd = &cobra.Command{
	Use:   "type [text]",
	Short: "Type text or press a key in the bound window",
	Long: `Focus the bound window and type text as Unicode key events, or press a
named key with --key (enter, space, escape, tab, f1-f12, a letter, 0x5A...).
Text can be passed as a positional argument or via --text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	typeCmd.Flags().String("text", "", "Text to type (alternative to positional arg)")
	typeCmd.Flags().String("key", "", "Named key to press, e.g. enter")
}

func runType(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	key, _ := cmd.Flags().GetString("key")

	// Positional arg overrides --text flag
	if len(args) > 0 {
		text = args[0]
	}
	if text == "" && key == "" {
		return fmt.Errorf("specify --text, --key, or a positional text argument")
	}

	hub, err := openHub(hubOptions{RequireBound: true})
	if err != nil {
		return err
	}
	defer hub.Close()

	if key != "" {
		if err := hub.SendKey(key); err != nil {
			return err
		}
		return output.Print(TypeResult{OK: true, Action: "key", Key: key})
	}
	if err := hub.SendText(text); err != nil {
		return err
	}
	return output.Print(TypeResult{OK: true, Action: "type", Text: text})
}
