package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectralab/codelens/internal/mcp"
	"github.com/vectralab/codelens/internal/searcher"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed codebase",
	Long: `Performs hybrid search over the indexed codebase, combining vector
similarity with keyword overlap, file size, file type, and freshness.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	resp, err := server.Engine().Search(ctx, searcher.Request{
		Query: args[0],
		Limit: searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	cmd.Println("Results:")
	cmd.Println()
	for i, res := range resp.Results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, res.Path, res.ConfidenceScore)
		if res.Snippet != "" {
			cmd.Printf("      %s\n", firstLine(res.Snippet))
		}
		cmd.Println()
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
