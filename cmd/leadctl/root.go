package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/omnilead/internal/config"
	"github.com/capitalize-ai/omnilead/internal/store"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "leadctl",
		Short:        "OmniLead administration tools",
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newUserCmd())
	return cmd
}

// openStore opens the database named by DATABASE_DRIVER and DATABASE_URL.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.Load()
	return store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
