package cmd

import (
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdUtils "github.com/hatchpay/offramp-backend/cmd/utils"
	"github.com/hatchpay/offramp-backend/db"
)

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration helpers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}
	dbCmd.AddCommand(migrateCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [count]",
		Short: "Migrates database up [count] migrations",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.runMigration(globalOptions.DatabaseURL, migrate.Up, args)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [count]",
		Short: "Migrates database down [count] migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.runMigration(globalOptions.DatabaseURL, migrate.Down, args)
		},
	})

	return dbCmd
}

func (c *DatabaseCommand) runMigration(databaseURL string, dir migrate.MigrationDirection, args []string) {
	count := 0
	if len(args) > 0 {
		var err error
		count, err = strconv.Atoi(args[0])
		if err != nil {
			log.Fatalf("Invalid [count] argument: %s", args[0])
		}
	}

	applied, err := db.Migrate(databaseURL, dir, count)
	if err != nil {
		log.Fatalf("Error migrating database: %s", err.Error())
	}

	if applied == 0 {
		log.Info("No migrations applied.")
	} else {
		log.Infof("Successfully applied %d migrations.", applied)
	}
}
