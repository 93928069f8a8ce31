package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/claimflow/internal/config"
	"github.com/garyjia/claimflow/migrations"
	"github.com/garyjia/claimflow/pkg/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the sqlite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Database.Driver != config.DriverSQLite {
				return fmt.Errorf("migrate needs the sqlite driver, configured driver is %q", a.cfg.Database.Driver)
			}

			db, err := database.New(database.Config{
				Path:            a.cfg.Database.Path,
				MaxOpenConns:    a.cfg.Database.MaxOpenConns,
				MaxIdleConns:    a.cfg.Database.MaxIdleConns,
				ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.NewMigrator(db, a.logger).Run(migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", applied, a.cfg.Database.Path)
			return nil
		},
	}
}
