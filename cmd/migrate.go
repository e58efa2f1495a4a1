package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Dosada05/matchdesk/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(dbConn)

			if err := db.RunMigrations(dbConn); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the given number of migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = n
			}

			dbConn, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(dbConn)

			if err := db.RollbackMigrations(dbConn, steps); err != nil {
				return err
			}
			logger.Info("migrations rolled back", slog.Int("steps", steps))
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(dbConn)

			version, dirty, err := db.MigrationVersion(dbConn)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return migrateCmd
}
