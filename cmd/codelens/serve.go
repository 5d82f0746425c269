package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/mcp"
	"github.com/vectralab/codelens/internal/queue"
	"github.com/vectralab/codelens/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server communicates over stdio using JSON-RPC. Logs go to stderr.
Directories listed under [indexing] watch_paths are watched for changes and
re-indexed automatically while the server runs.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "codelens": {
        "command": "/path/to/codelens",
        "args": ["serve"]
      }
    }
  }`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.Bool("vector_extension", storage.VectorExtensionAvailable))

	server, err := mcp.NewServer(ctx, cfg, log)
	if err != nil {
		return err
	}

	if len(cfg.Indexing.WatchPaths) > 0 {
		watcher, err := queue.NewWatcher(server.Queue(), cfg.Indexing.Extensions, log)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()
		for _, dir := range cfg.Indexing.WatchPaths {
			if err := watcher.Add(dir); err != nil {
				log.Warn("watch path unavailable", zap.String("dir", dir), zap.Error(err))
			}
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("watcher stopped", zap.Error(err))
			}
		}()
	}

	return server.Serve(ctx)
}
