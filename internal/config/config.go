package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For splitting list values
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort          string        // Application port
	IsProd           bool          // Is production environment
	LogLevel         string        // Logrus level name
	DBDriver         string        // mysql, postgres or sqlite
	DBUser           string        // Database user
	DBPassword       string        // Database password
	DBHost           string        // Database host
	DBPort           string        // Database port
	DBName           string        // Database name
	DBPath           string        // SQLite file path
	RedisAddr        string        // Redis server address, empty disables the cache
	RedisPass        string        // Redis password
	RedisDB          int           // Redis database number
	CacheTTL         time.Duration // Catalog cache lifetime
	BotToken         string        // Telegram bot token
	JWTSecret        string        // JWT secret key, derived from the bot token when empty
	JWTTTL           time.Duration // Session token lifetime
	AuthMaxAge       time.Duration // Max age of Telegram initData
	ClassifierURL    string        // Plant classifier service base URL
	DiseaseURL       string        // Disease detection service base URL
	InferenceTimeout time.Duration // Timeout for inference calls
	CORSOrigins      []string      // Allowed CORS origins
	SeedFile         string        // Catalog seed YAML
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),                     // Application port
		IsProd:           os.Getenv("IS_PROD") == "true",                 // Is production environment
		LogLevel:         getEnv("LOG_LEVEL", "info"),                    // Log level
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "sqlite")), // Database driver
		DBUser:           os.Getenv("DB_USER"),                           // Database user
		DBPassword:       os.Getenv("DB_PASSWORD"),                       // Database password
		DBHost:           os.Getenv("DB_HOST"),                           // Database host
		DBPort:           os.Getenv("DB_PORT"),                           // Database port
		DBName:           os.Getenv("DB_NAME"),                           // Database name
		DBPath:           getEnv("DB_PATH", "data/plantastic.db"),        // SQLite file
		RedisAddr:        os.Getenv("REDIS_ADDR"),                        // Redis server address
		RedisPass:        os.Getenv("REDIS_PASS"),                        // Redis password
		RedisDB:          redisDB,                                        // Redis database number
		CacheTTL:         getDuration("CACHE_TTL", 5*time.Minute),        // Cache TTL
		BotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),                // Telegram bot token
		JWTSecret:        os.Getenv("JWT_SECRET"),                        // JWT secret key
		JWTTTL:           getDuration("JWT_TTL", 24*time.Hour),           // Token lifetime
		AuthMaxAge:       getDuration("AUTH_MAX_AGE", time.Hour),         // initData max age
		ClassifierURL:    strings.TrimRight(getEnv("CLASSIFIER_URL", "http://localhost:8001"), "/"),
		DiseaseURL:       strings.TrimRight(getEnv("DISEASE_URL", "http://localhost:8002"), "/"),
		InferenceTimeout: getDuration("INFERENCE_TIMEOUT", 30*time.Second), // Inference timeout
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),           // CORS origins
		SeedFile:         getEnv("SEED_FILE", "data/catalog.yaml"),         // Seed file
	}
}

// getEnv returns the variable or a fallback when it is unset or empty
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses a duration variable, falling back on empty or invalid input
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
