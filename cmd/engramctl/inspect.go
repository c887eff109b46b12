package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "inspect <memory-id>",
		Short: "Print a memory by ID, bypassing witness access control",
		Args:  cobra.ExactArgs(1),
		Run:   runInspect,
	}
	rootCmd.AddCommand(cmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store, closeStore, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer closeStore()

	m, err := store.Get(ctx, args[0])
	if err != nil {
		exitErr("get memory", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		exitErr("marshal memory", err)
	}
	fmt.Println(string(b))
}
