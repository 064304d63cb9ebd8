package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBDriver  string
	DBSource  string
	Port      string
	JWTSecret string
	LogLevel  string
	SeedDemo  bool

	CORSOrigins []string

	Payment PaymentConfig
	Pricing PricingConfig

	KafkaBrokers string
	KafkaTopic   string

	// EnvFileProblem is set when a .env file exists but could not be read.
	EnvFileProblem string
}

// PaymentConfig is handed to the gateway adapter and the reconciler at construction.
type PaymentConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	BaseURL        string
	Currency       string
	GatewayTimeout time.Duration
}

type PricingConfig struct {
	TaxRate            decimal.Decimal
	TotalTolerance     decimal.Decimal
	DefaultDeliveryFee decimal.Decimal
}

// LoadConfig reads the environment (and an optional .env file), applies defaults
// and reports every invalid value at once.
func LoadConfig() (*Config, error) {
	envProblem := ""
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		envProblem = err.Error()
	}

	var problems []string
	dec := func(key, fallback string) decimal.Decimal {
		d, err := decimal.NewFromString(getEnv(key, fallback))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be a decimal", key))
		}
		return d
	}

	timeout, err := time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "10s"))
	if err != nil {
		problems = append(problems, "GATEWAY_TIMEOUT must be a duration like 10s")
	}
	seed, _ := strconv.ParseBool(getEnv("SEED_DEMO", "false"))

	cfg := &Config{
		DBDriver:  strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBSource:  getEnv("DB_SOURCE", "homechef.db"),
		Port:      getEnv("PORT", "8000"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SeedDemo:  seed,

		EnvFileProblem: envProblem,
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		Payment: PaymentConfig{
			KeyID:          os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:      os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret:  os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
			BaseURL:        getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Currency:       strings.ToUpper(getEnv("CURRENCY", "INR")),
			GatewayTimeout: timeout,
		},
		Pricing: PricingConfig{
			TaxRate:            dec("TAX_RATE", "0.05"),
			TotalTolerance:     dec("TOTAL_TOLERANCE", "0.01"),
			DefaultDeliveryFee: dec("DEFAULT_DELIVERY_FEE", "0"),
		},
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "homechef.orders"),
	}

	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (c *Config) validate() []string {
	var problems []string
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		problems = append(problems, "DB_DRIVER must be sqlite or mysql")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.Payment.KeySecret == "" {
		problems = append(problems, "RAZORPAY_KEY_SECRET is required")
	}
	if len(c.Payment.Currency) != 3 {
		problems = append(problems, "CURRENCY must be a 3-letter code")
	}
	if c.Payment.GatewayTimeout < 0 {
		problems = append(problems, "GATEWAY_TIMEOUT must not be negative")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		problems = append(problems, "TAX_RATE must be in [0, 1)")
	}
	if c.Pricing.TotalTolerance.IsNegative() {
		problems = append(problems, "TOTAL_TOLERANCE must not be negative")
	}
	if c.Pricing.DefaultDeliveryFee.IsNegative() {
		problems = append(problems, "DEFAULT_DELIVERY_FEE must not be negative")
	}
	return problems
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
