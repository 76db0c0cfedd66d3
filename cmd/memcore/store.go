package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memcore"
)

var (
	storeSource     string
	storeImportance float64
	storeTags       string
	storeSessionID  string
	storeAgentID    string
)

var storeCmd = &cobra.Command{
	Use:   "store [content]",
	Short: "Store a new memory entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStore,
}

func init() {
	storeCmd.Flags().StringVar(&storeSource, "source", "user", "entry source")
	storeCmd.Flags().Float64Var(&storeImportance, "importance", 0.5, "entry importance in [0,1]")
	storeCmd.Flags().StringVar(&storeTags, "tags", "", "comma-separated tags")
	storeCmd.Flags().StringVar(&storeSessionID, "session", "", "session id")
	storeCmd.Flags().StringVar(&storeAgentID, "agent", "", "agent id")
}

func runStore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	opts := memcore.StoreOptions{
		Source:     storeSource,
		Importance: storeImportance,
		SessionID:  storeSessionID,
		AgentID:    storeAgentID,
	}
	if storeTags != "" {
		opts.Tags = strings.Split(storeTags, ",")
	}

	entry, err := eng.Store(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("store entry: %w", err)
	}
	fmt.Printf("stored %s (L-score %.3f, depth %d)\n", entry.ID, entry.LScore, entry.LineageDepth)
	return nil
}
