package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string
	LogLevel string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PaymentAPIURL       string
	PaymentSecretKey    string
	PaymentWebhookToken string
	PublicBaseURL       string
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool { return c.AppEnv == "production" }

func Load() Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		DBDSN:    getEnv("DB_DSN", "synergyfoods.db"),
		MediaDir: getEnv("MEDIA_DIR", "./web/media"),
		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret: getEnv("JWT_SECRET_KEY", "change-me-in-production"),
		JWTTTL:    time.Duration(getEnvInt("JWT_TTL_MINUTES", 60)) * time.Minute,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		KafkaBrokers: getEnvSlice("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),

		PaymentAPIURL:       strings.TrimRight(getEnv("PAYMENT_API_URL", "https://api.stripe.com"), "/"),
		PaymentSecretKey:    getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookToken: getEnv("PAYMENT_WEBHOOK_TOKEN", ""),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
	}
	log.Printf("[config] APP_ENV=%s PORT=%s DB_DSN=%s MEDIA_DIR=%s REDIS=%t KAFKA=%t PAYMENTS=%t",
		cfg.AppEnv, cfg.Port, cfg.DBDSN, cfg.MediaDir,
		cfg.RedisAddr != "", len(cfg.KafkaBrokers) > 0, cfg.PaymentSecretKey != "")
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
