package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsEntityID string

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store-wide or per-entity memory counts",
		Run:   runStats,
	}
	cmd.Flags().StringVar(&statsEntityID, "entity", "", "Restrict stats to memories witnessed by this entity ID")
	rootCmd.AddCommand(cmd)
}

type storeStats struct {
	TotalMemories int            `json:"total_memories"`
	ByMemoryType  map[string]int `json:"by_memory_type"`
}

func runStats(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store, closeStore, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	var ids []string
	if statsEntityID != "" {
		ids, err = store.ScanByEntity(ctx, statsEntityID)
		if err != nil {
			exitErr("scan by entity", err)
		}
	}

	stats := storeStats{ByMemoryType: map[string]int{}}
	if statsEntityID == "" {
		all, err := store.AllMemories(ctx)
		if err != nil {
			exitErr("list memories", err)
		}
		for _, m := range all {
			stats.TotalMemories++
			stats.ByMemoryType[string(m.Metadata.MemoryType)]++
		}
	} else {
		for _, id := range ids {
			m, err := store.Get(ctx, id)
			if err != nil {
				continue
			}
			stats.TotalMemories++
			stats.ByMemoryType[string(m.Metadata.MemoryType)]++
		}
	}

	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		exitErr("marshal stats", err)
	}
	fmt.Println(string(b))
}
