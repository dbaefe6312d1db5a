package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every process-wide setting. It is built once in main and
// passed into the components that need it; nothing reads the environment
// after Load returns.
type Config struct {
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PaymentAPIURL        string
	PaymentSecretKey     string
	PaymentWebhookSecret string
	PaymentTimeout       time.Duration
	Currency             string
	TaxRate              float64

	RedisAddr    string
	KafkaBrokers []string
	OrderTopic   string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	Port string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "fabrix"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),

		PaymentAPIURL:        getEnvOrDefault("PAYMENT_API_URL", "https://api.stripe.com"),
		PaymentSecretKey:     getEnvOrDefault("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookSecret: getEnvOrDefault("PAYMENT_WEBHOOK_SECRET", ""),
		PaymentTimeout:       getDurationEnv("PAYMENT_TIMEOUT", 10, time.Second),
		Currency:             strings.ToLower(getEnvOrDefault("CURRENCY", "usd")),
		TaxRate:              getFloatEnv("TAX_RATE", 0.08),

		RedisAddr:    getEnvOrDefault("REDIS_ADDR", ""),
		KafkaBrokers: getListEnv("KAFKA_BROKERS"),
		OrderTopic:   getEnvOrDefault("ORDER_TOPIC", "order-events"),

		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser: getEnvOrDefault("SMTP_USER", ""),
		SMTPPass: getEnvOrDefault("SMTP_PASS", ""),
		MailFrom: getEnvOrDefault("MAIL_FROM", "orders@fabrix.example"),

		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
