package main

import (
	"context" // context package is needed for Redis operations
	"os"      // Logger output

	"plantastic/internal/api"       // Custom package for API handlers
	"plantastic/internal/config"    // Custom package for configuration
	"plantastic/internal/db"        // Database connection and migration
	"plantastic/internal/inference" // Classifier clients
	"plantastic/internal/utils"     // Telegram key derivation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetOutput(os.Stdout)
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	if cfg.BotToken == "" {
		logrus.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = utils.WebAppSecret(cfg.BotToken) // Derived from the bot token
		logrus.Warn("JWT_SECRET not set, deriving it from the bot token")
	}

	// Connect to the database and create the schema
	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client, the cache is optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.WithField("error", err.Error()).Warn("Redis unreachable, responses will not be cached until it recovers")
		}
	} else {
		logrus.Info("REDIS_ADDR not set, catalog cache disabled")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		DB:       conn,
		Redis:    redisClient,
		CacheTTL: cfg.CacheTTL,
		Auth: api.AuthSettings{
			BotToken:  cfg.BotToken,
			JWTSecret: secret,
			TokenTTL:  cfg.JWTTTL,
			MaxAge:    cfg.AuthMaxAge,
		},
		Plants:      inference.NewPlantClassifier(cfg.ClassifierURL, cfg.InferenceTimeout),
		Diseases:    inference.NewDiseaseDetector(cfg.DiseaseURL, cfg.InferenceTimeout),
		CORSOrigins: cfg.CORSOrigins,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "driver": cfg.DBDriver}).Info("Server running") // Log server start
	// Start the server on port cfg.AppPort
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
