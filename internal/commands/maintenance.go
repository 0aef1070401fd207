package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/netinventory/internal/importer"
)

func newNormalizeTIDsCommand(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "normalize-tids",
		Short: "Rewrite stored ATM TIDs into normalized form",
		Long: `Normalize-tids repairs TIDs stored before identifiers were normalized on
import, such as "1001.0" or "1.001E+3". When the normalized TID is already
taken the first free "<tid>-N" is used and counted as a conflict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := importer.NormalizeStoredTIDs(ctx, store, a.logger)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderTable(cmd.OutOrStdout(), []any{"Checked", "Updated", "Conflicts"},
				[]any{report.Checked, report.Updated, report.Conflicts})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show inventory counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			counts, err := store.Counts(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			return renderTable(cmd.OutOrStdout(), []any{"Regions", "Districts", "Branches", "Contacts", "ATMs"},
				[]any{counts.Regions, counts.Districts, counts.Branches, counts.Contacts, counts.ATMs})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print counts as JSON")
	return cmd
}

// migrator is implemented by stores that own a schema.
type migrator interface {
	Migrate(ctx context.Context) error
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the inventory tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			m, ok := store.(migrator)
			if !ok {
				return fmt.Errorf("store %T has no schema to migrate", store)
			}
			if err := m.Migrate(ctx); err != nil {
				return err
			}
			a.logger.Info("schema up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
