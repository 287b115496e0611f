package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lonkyzooner/thunderfire-sub002/internal/config"
)

var (
	debug      bool
	configFile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "thunderfire",
	Short:         "Conversational orchestration engine for field officers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := os.Setenv(config.EnvConfigFile, configFile); err != nil {
				return fmt.Errorf("set config file: %w", err)
			}
		}
		var err error
		logger, err = buildLogger(debug || strings.EqualFold(config.EnvString(config.EnvLogLevel), "debug"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yaml (overrides "+config.EnvConfigFile+")")

	rootCmd.AddCommand(serveCmd, classifyCmd, workflowCmd, statutesCmd)
}

func buildLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.FromYAMLAndEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
