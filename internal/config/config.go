package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends for the donations table
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the Save The Square server
type Config struct {
	Server    ServerConfig
	Supabase  SupabaseConfig
	Donations DonationsConfig
	Stripe    StripeConfig
	Email     EmailConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	Selection SelectionConfig
	RateLimit RateLimitConfig
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port           string
	SiteURL        string // base URL used in emails and checkout redirects
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Environment    string
}

// SupabaseConfig hosted database settings
type SupabaseConfig struct {
	URL        string
	AnonKey    string
	DBPassword string
}

// DonationsConfig persistence and pricing
type DonationsConfig struct {
	Backend        string
	SquarePriceSEK int
	Currency       string
}

// StripeConfig payment provider settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	TestMode      bool
}

// EmailConfig confirmation email settings
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	TestMode       bool
}

// FirestoreConfig pending checkout store; empty project disables it
type FirestoreConfig struct {
	ProjectID  string
	PendingTTL time.Duration
}

// RedisConfig snapshot cache and settings store; empty host disables it
type RedisConfig struct {
	Host string
	Port string
	Pass string
	DB   int
}

// SelectionConfig selection sessions and text mode
type SelectionConfig struct {
	BoundaryPath  string
	SessionTTL    time.Duration
	TextDebounce  time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig per-client limits on write endpoints
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ .env file not found, using system environment variables")
	}

	stripeTestMode := getBoolEnv("STRIPE_TEST_MODE", true)

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			SiteURL:        strings.TrimRight(getEnv("SITE_URL", "http://localhost:8888"), "/"),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			Environment:    getEnv("ENVIRONMENT", "development"),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			AnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
			DBPassword: getEnv("SUPABASE_DB_PASSWORD", ""),
		},
		Donations: DonationsConfig{
			Backend:        getEnv("DONATIONS_BACKEND", BackendSupabase),
			SquarePriceSEK: getIntEnv("SQUARE_PRICE_SEK", 20),
			Currency:       getEnv("CURRENCY", "sek"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			TestMode:      stripeTestMode,
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@savethesquare.se"),
			// email test mode follows the payment test mode unless set explicitly
			TestMode: getBoolEnv("EMAIL_TEST_MODE", stripeTestMode),
		},
		Firestore: FirestoreConfig{
			ProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
			PendingTTL: getDurationEnv("PENDING_CHECKOUT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", ""),
			Port: getEnv("REDIS_PORT", "6379"),
			Pass: getEnv("REDIS_PASS", ""),
			DB:   getIntEnv("REDIS_DB", 0),
		},
		Selection: SelectionConfig{
			BoundaryPath:  getEnv("PROPERTY_BOUNDARY_PATH", "data/visne-angar.geojson"),
			SessionTTL:    getDurationEnv("SELECTION_SESSION_TTL", 2*time.Hour),
			TextDebounce:  getDurationEnv("TEXT_DEBOUNCE", 300*time.Millisecond),
			SweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatEnv("RATE_LIMIT_RPS", 2),
			Burst: getIntEnv("RATE_LIMIT_BURST", 10),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	switch c.Donations.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase backend")
		}
	case BackendPostgres:
		if c.Supabase.URL == "" || c.Supabase.DBPassword == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_DB_PASSWORD are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown DONATIONS_BACKEND %q", c.Donations.Backend)
	}
	if c.Donations.SquarePriceSEK <= 0 {
		return fmt.Errorf("SQUARE_PRICE_SEK must be positive")
	}
	if !c.Stripe.TestMode {
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when STRIPE_TEST_MODE is false")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_TEST_MODE is false")
		}
	}
	if !c.Email.TestMode && c.Email.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_TEST_MODE is false")
	}
	if c.Selection.BoundaryPath == "" {
		return fmt.Errorf("PROPERTY_BOUNDARY_PATH is required")
	}
	return nil
}

// Addr host:port for the redis client
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Enabled reports whether a redis host is configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// UnitAmountOre price of one square in the currency's minor unit
func (c *DonationsConfig) UnitAmountOre() int64 {
	return int64(c.SquarePriceSEK) * 100
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variable access

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️ invalid number value for %s: %s, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️ invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️ invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return duration
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
