package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report store, vector index, queue, and compression stats",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	stats, err := eng.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	fmt.Printf("entries:      %d\n", stats.EntryCount)
	fmt.Printf("vectors:      %d\n", stats.VectorCount)
	fmt.Printf("queue depth:  %d\n", stats.QueueDepth)
	fmt.Printf("queue healthy: %v\n", !stats.QueueDropped)

	comp, err := eng.GetCompressionStats(ctx)
	if err != nil {
		return fmt.Errorf("get compression stats: %w", err)
	}
	fmt.Println("tier counts:")
	for tier, n := range comp.TierCounts {
		fmt.Printf("  %-8s %d\n", tier, n)
	}
	fmt.Printf("memory saved: %.1f%%\n", comp.MemorySaved*100)
	return nil
}
