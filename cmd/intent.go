package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/intent"
	"github.com/mj1618/guidepilot/internal/macro"
	"github.com/mj1618/guidepilot/internal/output"
)

// IntentResult is the output of the intent command.
type IntentResult struct {
	Intent *intent.Intent       `yaml:"intent"                json:"intent"`
	All    []intent.Coordinates `yaml:"coordinates,omitempty" json:"coordinates,omitempty"`
	Report *macro.Report        `yaml:"report,omitempty"      json:"report,omitempty"`
}

var intentCmd = &cobra.Command{
	Use:   "intent [text]",
	Short: "Extract the travel destination from guide step text",
	Long: `Find the "allez en / go to [x,y]" marker in step text (HTML allowed) and
print the travel command. A marker inside a shortcut-colored span becomes a
shortcut intent. Use --run to execute it. Reads stdin when text is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIntent,
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.Flags().String("file", "", "Read step text from a file")
	intentCmd.Flags().Bool("run", false, "Run the travel or shortcut macro")
}

func readStepText(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read step text: %w", err)
		}
		return string(b), nil
	case len(args) > 0 && args[0] == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case len(args) > 0:
		return args[0], nil
	default:
		return "", fmt.Errorf("specify step text, - for stdin, or --file")
	}
}

func runIntent(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	run, _ := cmd.Flags().GetBool("run")

	text, err := readStepText(args, file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	ex := intent.Extractor{CommandTemplate: appConfig.Macro.CommandTemplate}
	res := IntentResult{Intent: ex.Extract(text), All: intent.AllCoordinates(text)}

	if run {
		if res.Intent == nil {
			return fmt.Errorf("no travel marker in %q", strings.TrimSpace(intent.PlainText(text)))
		}
		hub, err := openHub(hubOptions{RequireBound: true})
		if err != nil {
			return err
		}
		defer hub.Close()
		r, err := hub.RunIntent(res.Intent)
		if err != nil {
			return err
		}
		res.Report = &r
	}
	return output.Print(res)
}
