package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Debug     bool
	Database  DatabaseConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Geocode   GeocodeConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// StorageConfig selects where floorplan images live
type StorageConfig struct {
	Backend        string // file | minio
	MediaRoot      string
	MediaURL       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
	MinioPublicURL string
}

// RedisConfig enables cross-instance broadcast when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeocodeConfig holds geocoding provider settings
type GeocodeConfig struct {
	Provider     string // ArcGIS | Nominatim
	APIKey       string
	UserAgent    string
	Retries      int
	FailureDelay time.Duration
	StrictTest   bool
	Check        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	retries, err := strconv.Atoi(getEnv("GEOCODE_RETRIES", "3"))
	if err != nil || retries < 1 {
		return nil, fmt.Errorf("invalid GEOCODE_RETRIES value: %q", os.Getenv("GEOCODE_RETRIES"))
	}
	delay, err := parseDelay(getEnv("GEOCODE_FAILURE_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_FAILURE_DELAY value: %v", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %v", err)
	}

	cfg := &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		JWTSecret: jwtSecret,
		Debug:     getBool("LOCI_DEBUG", false),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "loci"),
			Alter:    getBool("DB_ALTER", false),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "file"),
			MediaRoot:      getEnv("MEDIA_ROOT", "./media"),
			MediaURL:       getEnv("MEDIA_URL", "/media"),
			MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
			MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinioBucket:    getEnv("MINIO_BUCKET", "loci"),
			MinioSSL:       getBool("MINIO_SSL", false),
			MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Geocode: GeocodeConfig{
			Provider:     getEnv("GEOCODER", "ArcGIS"),
			APIKey:       os.Getenv("GEOCODE_API_KEY"),
			UserAgent:    getEnv("GEOCODE_USER_AGENT", "loci"),
			Retries:      retries,
			FailureDelay: delay,
			StrictTest:   getBool("GEOCODE_STRICT_TEST", true),
			Check:        getBool("GEOCODE_CHECK", true),
		},
	}

	if cfg.Storage.Backend != "file" && cfg.Storage.Backend != "minio" {
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
	return cfg, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBool parses a boolean environment variable, falling back on parse errors
func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// parseDelay accepts a Go duration ("500ms") or plain seconds ("1")
func parseDelay(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
