// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/whisperbox/whisperbox/internal/config"
)

// migratorOpener opens a migrator for a database URL.
type migratorOpener func(databaseURL string) (Migrator, error)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(openMigrator)
}

func newMigrateCmd(open migratorOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the embedded database migrations.
The database URL comes from the config file, WHISPERBOX_DATABASE_URL or DATABASE_URL.`,
	}

	cmd.AddCommand(newMigrateUpCmd(open))
	cmd.AddCommand(newMigrateDownCmd(open))
	cmd.AddCommand(newMigrateStatusCmd(open))
	cmd.AddCommand(newMigrateForceCmd(open))

	return cmd
}

func newMigrateUpCmd(open migratorOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(open, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd(open migratorOpener) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Long:  `Roll back the latest migration, or every migration with --all (drops all data).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(open, func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return err
					}
				} else {
					cmd.Println("Rolling back one migration...")
					if err := m.Steps(-1); err != nil {
						return err
					}
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateStatusCmd(open migratorOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(open, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}

				state := "clean"
				if st.Dirty {
					state = "dirty"
				}
				cmd.Printf("Current version: %d (%s)\n", st.Version, state)
				for _, mig := range st.Applied {
					cmd.Printf("  [applied] %s\n", mig.Name)
				}
				for _, mig := range st.Pending {
					cmd.Printf("  [pending] %s\n", mig.Name)
				}
				if st.Dirty {
					cmd.Println("The database is dirty; fix it manually, then run 'whisperbox migrate force VERSION'.")
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd(open migratorOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Long: `Record VERSION as the current migration version and clear the dirty flag.
Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(open, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced migration version to %d\n", version)
				return nil
			})
		},
	}
}

// withMigrator opens a migrator, runs fn and closes the migrator.
func withMigrator(open migratorOpener, fn func(Migrator) error) (err error) {
	databaseURL, err := getDatabaseURL()
	if err != nil {
		return err
	}

	m, err := open(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(m)
}

// getDatabaseURL resolves the database URL through the config layers.
func getDatabaseURL() (string, error) {
	path, err := resolveConfigFile()
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(path, nil)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (set %sDATABASE_URL or DATABASE_URL)", config.EnvPrefix)
	}
	return cfg.Database.URL, nil
}

// parseForceVersion reads a migration version. Parsing stops at the first
// non-digit; range checks are left to the migrator.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").
			With("input", s).
			Errorf("version must be an integer, got %q", s)
	}
	return version, nil
}
