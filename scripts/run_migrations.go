package main

import (
	"context"
	"log"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down|status]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	switch direction := os.Args[1]; direction {
	case "up":
		err = database.Migrate(db)
	case "down":
		err = database.Rollback(db)
	case "status":
		err = database.MigrationStatus(db)
	default:
		log.Fatalf("Unknown command %q, expected up, down or status", direction)
	}
	if err != nil {
		log.Fatalf("Migrations %s: %v", os.Args[1], err)
	}

	log.Printf("Migrations %s done", os.Args[1])
}
