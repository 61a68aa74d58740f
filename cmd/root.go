package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/config"
	"github.com/probelab/fathom/internal/learned"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fathom",
	Short: "Adaptive detection and extraction for heterogeneous exchange sites",
	Long:  "Classifies unknown page structures, infers form field purposes, mines network traffic for deposit addresses and minimum amounts, and learns which selectors work per target.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured learned pattern store and runs migrations.
func openStore(ctx context.Context) (learned.Store, error) {
	var (
		store learned.Store
		err   error
	)
	switch cfg.Store.Driver {
	case "postgres":
		store, err = learned.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		store, err = learned.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
