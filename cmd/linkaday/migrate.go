package main

import (
	"github.com/spf13/cobra"

	"github.com/jmerrifield20/linkaday/internal/config"
	"github.com/jmerrifield20/linkaday/internal/database"
	"github.com/jmerrifield20/linkaday/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
	Long: `migrate runs the embedded SQL migrations against the database named by
database.privileged_url (falling back to database.url). The role must own the
profiles table, since the migrations create row-level security policies.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(database.Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(database.Down)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrate(dir database.Direction) error {
	db, err := config.LoadDatabase(newViper())
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: "info", Development: true})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return database.Migrate(db.PrivilegedURL, dir, logger)
}
