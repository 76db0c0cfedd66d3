package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memcore"
)

var (
	queryTopK    int
	queryMinScr  float64
	queryRerank  bool
	queryEnhance bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query memory entries by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 10, "number of results")
	queryCmd.Flags().Float64Var(&queryMinScr, "min-score", 0, "minimum similarity score")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "re-rank results by L-score")
	queryCmd.Flags().BoolVar(&queryEnhance, "include-provenance", false, "attach provenance detail to each result")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	results, err := eng.Query(ctx, args[0], memcore.QueryOptions{
		TopK:              queryTopK,
		MinScore:          queryMinScr,
		Rerank:            queryRerank,
		IncludeProvenance: queryEnhance,
	})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.4f  %s  %s\n", r.Score, r.Entry.ID, truncate(r.Entry.Content, 80))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
