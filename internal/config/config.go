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
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	MigrateOnStart    bool

	Redis         RedisConfig
	AMQPURL       string
	Notifications string
	ChangeFeed    string

	ReadinessPolicy string
	ReceiptDir      string
	RestaurantName  string

	RateLimit RateLimitConfig
}

// RateLimitConfig bounds tip-by-token attempts per client.
type RateLimitConfig struct {
	TipPerMinute int
	TipBurst     int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	NotificationsNone  = "none"
	NotificationsRedis = "redis"
	NotificationsAMQP  = "amqp"

	ChangeFeedLocal    = "local"
	ChangeFeedPostgres = "postgres"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "menuya"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "menuya"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "menuya.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		MigrateOnStart:    getenvBool("MIGRATE_ON_START", true),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		AMQPURL:         strings.TrimSpace(getenv("AMQP_URL", "")),
		Notifications:   normalizeChoice(getenv("NOTIFICATIONS_TRANSPORT", NotificationsNone), NotificationsNone, NotificationsRedis, NotificationsAMQP),
		ChangeFeed:      normalizeChoice(getenv("CHANGE_FEED", ChangeFeedLocal), ChangeFeedLocal, ChangeFeedPostgres),
		ReadinessPolicy: strings.ToLower(strings.TrimSpace(getenv("READINESS_POLICY", "strict"))),
		ReceiptDir:      getenv("RECEIPT_DIR", "receipts"),
		RestaurantName:  getenv("RESTAURANT_NAME", "MenuYa"),
		RateLimit: RateLimitConfig{
			TipPerMinute: getenvInt("RATE_LIMIT_TIP_PER_MINUTE", 30),
			TipBurst:     getenvInt("RATE_LIMIT_TIP_BURST", 10),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// normalizeChoice lowercases raw and falls back to the first option when it is unknown.
func normalizeChoice(raw string, options ...string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, option := range options {
		if value == option {
			return value
		}
	}
	return options[0]
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
