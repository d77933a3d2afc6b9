package main

import (
	"plantastic/internal/config" // Custom import path (Config)
	"plantastic/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}
}
