package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/guidepilot/internal/config"
	"github.com/mj1618/guidepilot/internal/logx"
	"github.com/mj1618/guidepilot/internal/output"
	"github.com/mj1618/guidepilot/internal/version"
)

var (
	appConfig *config.Config
	appLog    = logx.Discard()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "guidepilot",
	Short: "Drive a game window from guide steps",
	Long: `guidepilot binds a running game window, reads text on screen with OCR,
and types travel commands and shortcut macros into it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.PersistentFlags().String("config", "", "Config file (default: guidepilot.yaml if present)")
	rootCmd.PersistentFlags().String("env-file", "", "Dotenv file (default: .env if present)")
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("window", "", "Bind the window whose title contains this text (overrides config)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")

		cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
		envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
		cfg, err := config.Load(config.LoadOptions{File: cfgFile, EnvFile: envFile})
		if err != nil {
			return err
		}
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}
		if title, _ := rootCmd.PersistentFlags().GetString("window"); title != "" {
			cfg.Window.Title = title
		}
		appConfig = cfg

		log, closer, err := logx.New(logx.Options{Level: cfg.Log.Level, File: cfg.Log.File})
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		appLog, logCloser = log, closer
		slog.SetDefault(log)
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	}
}
