package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/output"
)

// BindResult is the output of a successful bind.
type BindResult struct {
	OK     bool    `yaml:"ok"     json:"ok"`
	Action string  `yaml:"action" json:"action"`
	Title  string  `yaml:"title"  json:"title"`
	Handle uintptr `yaml:"handle" json:"handle"`
	Client string  `yaml:"client" json:"client"`
}

var bindCmd = &cobra.Command{
	Use:   "bind <title>",
	Short: "Check which window a partial title binds",
	Long:  "Bind the first visible window whose title contains <title> (case-insensitive) and print it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBind,
}

func init() {
	rootCmd.AddCommand(bindCmd)
}

func runBind(cmd *cobra.Command, args []string) error {
	hub, err := openHub(hubOptions{})
	if err != nil {
		return err
	}
	defer hub.Close()

	if !hub.Bind(args[0]) {
		return errNoWindow(args[0])
	}
	b, _ := hub.Bound()
	client, _ := hub.ClientRect()
	return output.Print(BindResult{
		OK:     true,
		Action: "bind",
		Title:  b.Title,
		Handle: uintptr(b.Handle),
		Client: fmt.Sprintf("%d,%d,%d,%d", client.Left, client.Top, client.Width(), client.Height()),
	})
}
