package main

import (
	"log"

	"github.com/vishal-grover-dev/iq-sub000/internal/config"
	"github.com/vishal-grover-dev/iq-sub000/internal/database"
	"github.com/vishal-grover-dev/iq-sub000/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Logger)
	l := logger.Get()
	defer l.Sync()

	if err := database.RunMigrations(cfg.GetDSN(), "database/migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	l.Info("Migrations applied")
}
