package main

import (
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

type migrationOutput struct {
	Version  int64  `json:"version"`
	Source   string `json:"source"`
	Applied  bool   `json:"applied"`
	Duration string `json:"duration,omitempty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := st.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]migrationOutput, 0, len(results))
			for _, r := range results {
				out = append(out, migrationOutput{
					Version:  r.Source.Version,
					Source:   r.Source.Path,
					Applied:  true,
					Duration: r.Duration.String(),
				})
			}
			return writeJSON(out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := st.MigrateDown(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(migrationOutput{
				Version:  r.Source.Version,
				Source:   r.Source.Path,
				Applied:  false,
				Duration: r.Duration.String(),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			statuses, err := st.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]migrationOutput, 0, len(statuses))
			for _, s := range statuses {
				out = append(out, migrationOutput{
					Version: s.Source.Version,
					Source:  s.Source.Path,
					Applied: s.State == goose.StateApplied,
				})
			}
			return writeJSON(out)
		},
	})

	return cmd
}
