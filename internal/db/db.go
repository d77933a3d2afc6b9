package db

import (
	"fmt"           // Error formatting
	"os"            // Creating the sqlite directory
	"path/filepath" // Directory of the sqlite file
	"time"          // Retry timings

	"plantastic/internal/config" // Application configuration

	"github.com/cenkalti/backoff/v4" // Exponential backoff for the initial connection
	"github.com/sirupsen/logrus"     // Structured logging
	"gorm.io/driver/mysql"           // MySQL driver for GORM
	"gorm.io/driver/postgres"        // PostgreSQL driver for GORM
	"gorm.io/driver/sqlite"          // SQLite driver for GORM
	"gorm.io/gorm"                   // GORM ORM library
	"gorm.io/gorm/logger"            // GORM logger levels
)

// maxConnectAttempts bounds the startup retries
const maxConnectAttempts = 5

// Dialector builds the GORM dialector for the configured driver
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql":
		// Data Source Name (DSN) for MySQL connection
		dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true&charset=utf8mb4"
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		return postgres.Open(dsn), nil
	case "sqlite", "":
		// Create the directory for the database file if it does not exist
		if dir := filepath.Dir(cfg.DBPath); dir != "" && cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(cfg.DBPath + "?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Config is the GORM configuration shared by the server and tests
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn), // Only slow queries and errors
		TranslateError: true,                                // Map driver errors to gorm.ErrDuplicatedKey and friends
	}
}

// Open connects to the database, retrying with exponential backoff
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	gormCfg := Config()
	if cfg.IsProd {
		gormCfg.Logger = logger.Default.LogMode(logger.Error) // Errors only in production
	}

	bo := backoff.NewExponentialBackOff() // Exponential backoff between attempts
	bo.MaxElapsedTime = 30 * time.Second  // Give up after 30 seconds

	var conn *gorm.DB
	err = backoff.Retry(func() error {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			logrus.WithFields(logrus.Fields{"driver": cfg.DBDriver, "error": err.Error()}).Warn("Database connection failed")
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err) // Not a connectivity problem
		}
		if err := sqlDB.Ping(); err != nil {
			logrus.WithFields(logrus.Fields{"driver": cfg.DBDriver, "error": err.Error()}).Warn("Database ping failed")
			return err
		}
		conn = db
		return nil
	}, backoff.WithMaxRetries(bo, maxConnectAttempts-1))
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after retries: %w", err)
	}
	if cfg.DBDriver == "sqlite" || cfg.DBDriver == "" {
		sqlDB, _ := conn.DB()
		sqlDB.SetMaxOpenConns(1) // SQLite allows a single writer
	}
	logrus.WithField("driver", cfg.DBDriver).Info("Connected to database")
	return conn, nil
}

// Ping reports whether the database answers
func Ping(db *gorm.DB) bool {
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}
