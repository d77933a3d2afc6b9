package main

import (
	"os" // Optional path argument

	"plantastic/internal/config" // Custom import path (Config)
	"plantastic/internal/db"     // Custom import path (Database)
	"plantastic/internal/seed"   // Catalog seed loader

	"github.com/sirupsen/logrus" // Structured logging
)

// Loads catalog reference data; the file defaults to SEED_FILE
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := cfg.SeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	f, err := seed.LoadFile(path)
	if err != nil {
		logrus.Fatalf("failed to read seed file %s: %v", path, err)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}
	res, err := seed.Apply(conn, f)
	if err != nil {
		logrus.Fatalf("failed to seed catalog: %v", err)
	}
	logrus.WithField("file", path).Infof("Seed applied: %+v", res)
}
