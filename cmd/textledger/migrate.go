package main

import (
	"fmt"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run ledger database migrations",
		Long: `Initialize or update the ledger schema to the latest version.

An existing ledger is backed up next to the database before any pending
migration runs.`,
		RunE: a.runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().Bool("no-backup", false, "Skip the pre-migration backup")

	return cmd
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	status, _ := cmd.Flags().GetBool("status")
	noBackup, _ := cmd.Flags().GetBool("no-backup")

	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	pending, err := store.PendingMigrations(ctx)
	if err != nil {
		return err
	}

	if status {
		_, _ = fmt.Fprintln(out, cli.FormatTitle("Ledger Migration Status"))
		_, _ = fmt.Fprintf(out, "Database:        %s\n", store.Path())
		_, _ = fmt.Fprintf(out, "Current version: %d\n", current)
		_, _ = fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		_, _ = fmt.Fprintf(out, "Pending:         %d\n", pending)
		return nil
	}

	if pending == 0 {
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Ledger is up to date (version %d)", current)))
		return nil
	}

	if current > 0 && !noBackup {
		path, err := store.Backup(ctx, "pre-migrate")
		if err != nil {
			return fmt.Errorf("failed to back up ledger: %w", err)
		}
		a.logger.Info("backed up ledger", "path", path)
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Backup written to "+path))
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Applied %d migration(s); ledger is at version %d",
		pending, storage.ExpectedSchemaVersion)))
	return nil
}
