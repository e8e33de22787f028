package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string // postgres DSN; when empty DBPath is used
	DBPath      string
	LogLevel    slog.Level

	JWTSecret    []byte
	TokenTTL     time.Duration
	CookieSecure bool

	UploadDir      string
	UploadURL      string
	UploadMaxWidth uint

	Payment PaymentConfig
	Mail    MailConfig
}

type PaymentConfig struct {
	APIURL        string
	StoreID       int
	AuthKey       string
	Currency      string
	SuccessURL    string
	DeclinedURL   string
	CancelURL     string
	TestMode      bool
	WebhookSecret string
	Attempts      int
}

type MailConfig struct {
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SenderEmail        string
	BatchSize          int
	Attempts           int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "database.db"),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),

		TokenTTL:     getDuration("TOKEN_TTL", 7*24*time.Hour),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		UploadURL:      getEnv("UPLOAD_URL", "/uploads"),
		UploadMaxWidth: uint(getInt("UPLOAD_MAX_WIDTH", 800)),

		Payment: PaymentConfig{
			APIURL:        getEnv("PAYMENT_API_URL", "https://secure.telr.com/gateway/order.json"),
			StoreID:       getInt("PAYMENT_STORE_ID", 0),
			AuthKey:       os.Getenv("PAYMENT_AUTH_KEY"),
			Currency:      getEnv("PAYMENT_CURRENCY", "USD"),
			SuccessURL:    getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/payment_success"),
			DeclinedURL:   getEnv("PAYMENT_DECLINED_URL", "http://localhost:3000/cart"),
			CancelURL:     getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/cart"),
			TestMode:      getEnv("PAYMENT_MODE", "sandbox") != "live",
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
			Attempts:      getInt("PAYMENT_ATTEMPTS", 3),
		},
		Mail: MailConfig{
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SenderEmail:        os.Getenv("MAIL_SENDER"),
			BatchSize:          getInt("MAIL_BATCH_SIZE", 50),
			Attempts:           getInt("MAIL_ATTEMPTS", 3),
		},
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = "storefront-dev-secret"
	}
	cfg.JWTSecret = []byte(secret)

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT, falling back to default", "PORT", cfg.Port)
		cfg.Port = "3000"
	}

	return cfg
}

// MailEnabled reports whether SES credentials are configured.
func (c *Config) MailEnabled() bool {
	return c.Mail.SenderEmail != "" && c.Mail.AWSAccessKeyID != "" && c.Mail.AWSSecretAccessKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
