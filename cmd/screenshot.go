package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/preprocess"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the bound window's client area",
	Long: `Capture the bound window's client area, or an explicit screen zone, as PNG.
With --preprocess the image is upscaled and thresholded exactly as OCR sees it.`,
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().String("output", "", "Output file path (default: stdout as base64)")
	screenshotCmd.Flags().String("zone", "", "Absolute screen region x,y,w,h")
	screenshotCmd.Flags().Bool("preprocess", false, "Save the binarized OCR input instead of the raw capture")
	screenshotCmd.Flags().Int("threshold", 0, "Threshold for --preprocess (default: configured)")
	screenshotCmd.Flags().Float64("scale", 0, "Scale for --preprocess (default: configured)")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output")
	zoneFlag, _ := cmd.Flags().GetString("zone")
	pre, _ := cmd.Flags().GetBool("preprocess")
	threshold, _ := cmd.Flags().GetInt("threshold")
	scale, _ := cmd.Flags().GetFloat64("scale")

	zone, err := parseZone(zoneFlag)
	if err != nil {
		return err
	}
	hub, err := openHub(hubOptions{RequireBound: true})
	if err != nil {
		return err
	}
	defer hub.Close()

	shot, err := hub.Capture(zone)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if pre {
		if threshold == 0 {
			threshold = appConfig.OCR.Threshold
		}
		if scale == 0 {
			scale = appConfig.OCR.Scale
		}
		if threshold < 0 || threshold > 255 {
			return fmt.Errorf("threshold must be 0-255, got %d", threshold)
		}
		gray := preprocess.Preprocess(shot.Image, preprocess.Options{
			Threshold: uint8(threshold),
			Scale:     scale,
			Invert:    appConfig.OCR.Invert,
		})
		if gray == nil {
			return fmt.Errorf("scale %v is too large for a %dx%d capture", scale, shot.Image.Bounds().Dx(), shot.Image.Bounds().Dy())
		}
		err = png.Encode(&buf, gray)
	} else {
		err = png.Encode(&buf, shot.Image)
	}
	if err != nil {
		return fmt.Errorf("png encode: %w", err)
	}

	if outPath != "" {
		return os.WriteFile(outPath, buf.Bytes(), 0644)
	}

	// Default: write to stdout as base64 for easy agent consumption
	encoder := base64.NewEncoder(base64.StdEncoding, os.Stdout)
	if _, err := encoder.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	fmt.Println() // newline after base64
	return nil
}
