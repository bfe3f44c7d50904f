package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/secrets"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		encryptor, err := secrets.NewEncryptor([]byte(cfg.Secrets.MasterKey), nil)
		if err != nil {
			log.Fatalf("Failed to create encryptor: %v", err)
		}
		_, closeStore, err := openStores(ctx, cfg, encryptor, true)
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		defer closeStore()

		log.Printf("Schema up to date (%s)", cfg.Storage.Driver)
	},
}
