package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recreate-index",
		Short: "Rebuild the in-memory vector index from durable rows",
		Run:   runRecreateIndex,
	}
	rootCmd.AddCommand(cmd)
}

func runRecreateIndex(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	// openStore already calls Rebuild once on connect; a second call
	// here makes the operator-triggered recovery path explicit and
	// idempotent rather than relying on that connection side effect.
	store, closeStore, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	if err := store.Rebuild(ctx); err != nil {
		exitErr("rebuild index", err)
	}
	fmt.Println("index rebuilt")
}
