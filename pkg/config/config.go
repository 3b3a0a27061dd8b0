package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	ServerPort int

	DatabaseURL string
	AutoMigrate string

	JWTAccessSecret []byte
	AuthHTTPURL     string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisURL string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	PaypalClientID string
	PaypalSecret   string
	PaypalBaseURL  string
	PaypalINRUSD   float64
	PaymentTimeout time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func defaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "storefront")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("AUTO_MIGRATE", "sql")
	v.SetDefault("ES_INDEX", "products")
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("PAYPAL_INR_USD_RATE", 0.012)
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "orders@storefront.local")
	v.SetDefault("OTEL_ENABLE_TRACING", false)
	v.SetDefault("OTEL_ENABLE_METRICS", false)
}

// Load reads the process environment, optionally seeded from envFile.
func Load(envFile string) Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("notice: %s not loaded: %v, using system environment", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	return Config{
		ServiceName: v.GetString("SERVICE_NAME"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		ServerPort: v.GetInt("SERVER_PORT"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		AutoMigrate: v.GetString("AUTO_MIGRATE"),

		JWTAccessSecret: []byte(v.GetString("JWT_SECRET")),
		AuthHTTPURL:     v.GetString("AUTH_URL"),

		KafkaBrokers: CSV(v.GetString("KAFKA_BROKERS")),

		ESURL:      v.GetString("ES_URL"),
		ESUser:     v.GetString("ES_USER"),
		ESPassword: v.GetString("ES_PASSWORD"),
		ESIndex:    v.GetString("ES_INDEX"),

		RedisURL: v.GetString("REDIS_URL"),

		RazorpayKeyID:     v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   v.GetString("RAZORPAY_BASE_URL"),

		PaypalClientID: v.GetString("PAYPAL_CLIENT_ID"),
		PaypalSecret:   v.GetString("PAYPAL_SECRET"),
		PaypalBaseURL:  v.GetString("PAYPAL_BASE_URL"),
		PaypalINRUSD:   v.GetFloat64("PAYPAL_INR_USD_RATE"),
		PaymentTimeout: v.GetDuration("PAYMENT_TIMEOUT"),

		SMTPHost: v.GetString("SMTP_HOST"),
		SMTPPort: v.GetInt("SMTP_PORT"),
		SMTPUser: v.GetString("SMTP_USER"),
		SMTPPass: v.GetString("SMTP_PASS"),
		MailFrom: v.GetString("MAIL_FROM"),

		OTelEndpoint:  v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableTracing: v.GetBool("OTEL_ENABLE_TRACING"),
		EnableMetrics: v.GetBool("OTEL_ENABLE_METRICS"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
