package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/automation"
	"github.com/mj1618/guidepilot/internal/ocr"
	"github.com/mj1618/guidepilot/internal/output"
	"github.com/mj1618/guidepilot/internal/platform"
)

var locateCmd = &cobra.Command{
	Use:   "locate <target>",
	Short: "Find text on screen and print its coordinates",
	Long: `Capture the bound window (or a zone), upscale and binarize it, recognize
words and fuzzy-match <target>. Prints absolute screen coordinates of the
match and writes one debug PNG per attempt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().Int("threshold", 0, "Binarization threshold 1-255 (default: configured)")
	locateCmd.Flags().Float64("scale", 0, "Upscale factor 1-8 (default: configured)")
	locateCmd.Flags().String("zone", "", "Absolute screen region x,y,w,h (default: configured zone or the window)")
	locateCmd.Flags().String("hold", "", "Key to hold while capturing, e.g. z")
	locateCmd.Flags().Bool("no-hold", false, "Do not hold the configured hold key")
	locateCmd.Flags().Bool("click", false, "Click the match when found")
	locateCmd.Flags().String("button", "left", "Mouse button for --click: left, right, middle")
	locateCmd.Flags().Bool("words", false, "Include every recognized word in the output")
}

func runLocate(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetInt("threshold")
	scale, _ := cmd.Flags().GetFloat64("scale")
	zoneFlag, _ := cmd.Flags().GetString("zone")
	hold, _ := cmd.Flags().GetString("hold")
	noHold, _ := cmd.Flags().GetBool("no-hold")
	click, _ := cmd.Flags().GetBool("click")
	buttonFlag, _ := cmd.Flags().GetString("button")
	words, _ := cmd.Flags().GetBool("words")

	zone, err := parseZone(zoneFlag)
	if err != nil {
		return err
	}
	button, err := platform.ParseMouseButton(buttonFlag)
	if err != nil {
		return err
	}

	hub, err := openHub(hubOptions{OCR: true, RequireBound: true})
	if err != nil {
		return err
	}
	defer hub.Close()
	if !hub.OCRAvailable() {
		return ocr.ErrEngineUnavailable
	}

	res, err := hub.LocateText(cmd.Context(), automation.LocateRequest{
		Target:    strings.Join(args, " "),
		Threshold: threshold,
		Scale:     scale,
		Zone:      zone,
		HoldKey:   hold,
		NoHold:    noHold,
	})
	if err != nil {
		return err
	}
	if !words {
		res.Words = nil
	}
	if click && res.Found {
		if err := hub.Click(res.Point.X, res.Point.Y, button); err != nil {
			return fmt.Errorf("failed to click match: %w", err)
		}
	}
	return output.Print(res)
}
