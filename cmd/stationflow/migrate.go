package main

import (
	"log"

	"github.com/spf13/cobra"

	"stationflow/internal/config"
	"stationflow/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	conn, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := store.Migrate(conn); err != nil {
		return err
	}
	log.Printf("[stationflow] migrations applied to %s", cfg.DatabaseURL)
	return nil
}
