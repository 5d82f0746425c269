package main

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/vectralab/codelens/internal/config"
	"github.com/vectralab/codelens/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "codelens",
	Short: "Semantic code search over vector-indexed codebases",
	Long: `codelens indexes source files into a vector store and serves hybrid
semantic search over them, standalone or as an MCP server for AI assistants.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig builds the effective configuration: file, environment, then
// command-line flags, in increasing precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr; stdout is
// reserved for command output and the MCP protocol.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{Level: cfg.LogLevel})
}
