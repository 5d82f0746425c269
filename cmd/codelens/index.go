package main

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/mcp"
	"github.com/vectralab/codelens/pkg/types"
)

var indexPriority string

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index files or directories into the vector store",
	Long: `Walks the given paths and indexes every file with a configured
extension through the priority indexer. Batch sizes adapt to system load;
transient embedding failures are retried with a bounded budget.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexPriority, "priority", "p", "normal", "scheduling tier (critical, high, normal, low)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	server, err := mcp.NewServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer server.Close()

	priority := types.ParsePriority(indexPriority)
	indexer := server.Indexer()

	enqueued := 0
	for _, root := range args {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("walk error", zap.String("path", path), zap.Error(err))
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if !acceptsExtension(cfg.Indexing.Extensions, path) {
				return nil
			}
			indexer.Enqueue(path, priority)
			enqueued++
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := indexer.Run(ctx); err != nil {
		return err
	}

	stats := indexer.Stats()
	cmd.Printf("Indexed %d files (%d enqueued, %d skipped, %d failed, %d retried)\n",
		stats.Completed, enqueued, stats.Skipped, stats.Failed, stats.Retried)
	return nil
}

func acceptsExtension(extensions []string, path string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range extensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
