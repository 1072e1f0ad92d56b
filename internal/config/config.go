package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SaveLimit SaveLimitConfig

	Router RouterConfig
}

// SaveLimitConfig throttles router-mutating endpoints. The limiter is active
// only when a Redis address is configured.
type SaveLimitConfig struct {
	GlobalRate     float64
	GlobalBurst    int
	ClientRate     float64
	ClientBurst    int
	LockTTLSeconds int
}

// RouterConfig holds the RouterOS REST API connection settings.
type RouterConfig struct {
	BaseURL        string
	Username       string
	Password       string
	TimeoutSeconds int
	Insecure       bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "mikrobill"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mikrobill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		SaveLimit: SaveLimitConfig{
			GlobalRate:     getenvFloat("SAVE_LIMIT_GLOBAL_RATE", 5),
			GlobalBurst:    getenvInt("SAVE_LIMIT_GLOBAL_BURST", 10),
			ClientRate:     getenvFloat("SAVE_LIMIT_CLIENT_RATE", 0.5),
			ClientBurst:    getenvInt("SAVE_LIMIT_CLIENT_BURST", 2),
			LockTTLSeconds: getenvInt("SAVE_LIMIT_LOCK_TTL_SECONDS", 30),
		},

		Router: RouterConfig{
			BaseURL:        strings.TrimRight(getenv("ROUTER_BASE_URL", ""), "/"),
			Username:       getenv("ROUTER_USERNAME", "admin"),
			Password:       getenv("ROUTER_PASSWORD", ""),
			TimeoutSeconds: getenvInt("ROUTER_TIMEOUT_SECONDS", 15),
			Insecure:       getenvBool("ROUTER_INSECURE", false),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
