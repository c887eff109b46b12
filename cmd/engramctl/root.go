// Package main implements engramctl, the operator CLI that talks to
// the record store directly rather than through the memory engine, so
// it bypasses the witness access predicate entirely (§9's "no
// administrative read override" is honored at the HTTP/MCP layer; this
// binary is the deliberate out-of-band path for operators).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engram-ai/engram/internal/adapter/postgres"
	"github.com/engram-ai/engram/internal/config"
)

var configFile string

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "engramctl",
	Short: "Operator CLI for the Engram memory service",
	Long:  "engramctl inspects and repairs Engram's durable store directly, bypassing witness-based access control. For operator use only.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to an Engram config YAML file (defaults to built-in defaults + ENGRAM_ env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore loads config and connects directly to Postgres, returning
// a cleanup func the caller must run before exiting.
func openStore(ctx context.Context) (*postgres.Store, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	store := postgres.New(pool, cfg.VectorDim)
	if err := store.Rebuild(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("rebuild index: %w", err)
	}
	return store, pool.Close, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
