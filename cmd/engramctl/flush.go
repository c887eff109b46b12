package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Delete every memory in the store, preserving the index definition",
		Run:   runFlush,
	}
	rootCmd.AddCommand(cmd)
}

func runFlush(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store, closeStore, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	all, err := store.AllMemories(ctx)
	if err != nil {
		exitErr("list memories", err)
	}
	deleted := 0
	for _, m := range all {
		if err := store.Delete(ctx, m.MemoryID); err != nil {
			exitErr(fmt.Sprintf("delete %s", m.MemoryID), err)
		}
		deleted++
	}
	fmt.Printf("deleted %d memories\n", deleted)
}
