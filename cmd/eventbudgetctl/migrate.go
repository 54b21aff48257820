package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"eventbudget/internal/storage/sqlite"
)

var flagSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQLite schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
		if err := sqlite.RunMigrations(sqlite.DSN(path)); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		if err := sqlite.RollbackMigrations(sqlite.DSN(path), flagSteps); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the applied schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&flagSteps, "steps", 0, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func dbPath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDBPath, nil
}

func printVersion(cmd *cobra.Command, path string) error {
	version, dirty, err := sqlite.MigrationVersion(sqlite.DSN(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  Database: %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "  Version:  %d\n", version)
	if dirty {
		fmt.Fprintln(cmd.OutOrStdout(), "  State:    dirty")
	}
	return nil
}
