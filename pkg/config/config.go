package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	SiteURL        string
	TrustedProxies []string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string

	// RabbitMQ
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	S3UseSSL           string
	S3BucketName       string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// Economy
	MinWithdrawalXP           int64
	WithdrawalCooldownDays    int
	MaxWithdrawalsPer7Days    int
	DefaultConversionRate     string
	PayoutCurrency            string
	MaxXPPerDay               int64
	MaxEventsPerMinute        int
	MaxWithdrawalsPerHour     int
	MaxReferralSignupsPerHour int
	XPNonceTTLHours           int
	IdempotencyTTLHours       int
	ReferralRewardXP          int64
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		SiteURL:        getEnv("SITE_URL", "http://localhost:3000"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "xpcashout"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		RabbitMQHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
		S3UseSSL:           getEnv("S3_USE_SSL", "true"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "xp-cashout-payouts"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		MinWithdrawalXP:           int64(getEnvInt("MIN_WITHDRAWAL_XP", 5000)),
		WithdrawalCooldownDays:    getEnvInt("WITHDRAWAL_COOLDOWN_DAYS", 7),
		MaxWithdrawalsPer7Days:    getEnvInt("MAX_WITHDRAWALS_PER_7DAYS", 1),
		DefaultConversionRate:     getEnv("TZS_PER_XP", "0.05"),
		PayoutCurrency:            getEnv("PAYOUT_CURRENCY", "TZS"),
		MaxXPPerDay:               int64(getEnvInt("MAX_XP_PER_DAY", 10000)),
		MaxEventsPerMinute:        getEnvInt("MAX_EVENTS_PER_MINUTE", 100),
		MaxWithdrawalsPerHour:     getEnvInt("MAX_WITHDRAWALS_PER_HOUR", 10),
		MaxReferralSignupsPerHour: getEnvInt("MAX_REFERRAL_SIGNUPS_PER_HOUR", 10),
		XPNonceTTLHours:           getEnvInt("XP_NONCE_TTL_HOURS", 24),
		IdempotencyTTLHours:       getEnvInt("IDEMPOTENCY_TTL_HOURS", 24),
		ReferralRewardXP:          int64(getEnvInt("REFERRAL_REWARD_XP", 1000)),
	}

	// JWT_SECRET validation is done by the services that verify tokens

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
