package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Google    GoogleConfig
	Payment   PaymentConfig
	Storage   StorageConfig
	Pricing   PricingConfig
	Cart      CartConfig
	Catalog   CatalogConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// GoogleConfig enables Google sign-in when ClientID is set
type GoogleConfig struct {
	ClientID string
}

// PaymentConfig holds the payment gateway credentials
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
}

// StorageConfig points image uploads at a directory and the URL it is served from
type StorageConfig struct {
	Root      string
	PublicURL string
}

// PricingConfig holds the bundle promotion and default item weight
type PricingConfig struct {
	BundleCategory     string
	BundleSize         int
	BundlePrice        float64
	DefaultWeightGrams int
}

type CartConfig struct {
	TTL time.Duration
}

// CatalogConfig controls the fixed-count retry used when listing products
type CatalogConfig struct {
	RetryCount int
	RetryDelay time.Duration
}

type StoreConfig struct {
	Name          string
	WhatsAppPhone string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func Load() *Config {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.razorpay.com/v1")
	viper.SetDefault("PAYMENT_CURRENCY", "INR")
	viper.SetDefault("STORAGE_ROOT", "./uploads")
	viper.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8080/uploads")
	viper.SetDefault("PRICING_BUNDLE_CATEGORY", "Nighties")
	viper.SetDefault("PRICING_BUNDLE_SIZE", 4)
	viper.SetDefault("PRICING_BUNDLE_PRICE", 999)
	viper.SetDefault("PRICING_DEFAULT_WEIGHT_GRAMS", 250)
	viper.SetDefault("CART_TTL_HOURS", 720)
	viper.SetDefault("CATALOG_RETRY_COUNT", 2)
	viper.SetDefault("CATALOG_RETRY_DELAY_MS", 1500)
	viper.SetDefault("STORE_NAME", "MOVANA FASHIONS")
	viper.SetDefault("STORE_WHATSAPP_PHONE", "918072081691")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Google: GoogleConfig{
			ClientID: viper.GetString("GOOGLE_CLIENT_ID"),
		},
		Payment: PaymentConfig{
			KeyID:     viper.GetString("PAYMENT_KEY_ID"),
			KeySecret: viper.GetString("PAYMENT_KEY_SECRET"),
			BaseURL:   viper.GetString("PAYMENT_BASE_URL"),
			Currency:  viper.GetString("PAYMENT_CURRENCY"),
		},
		Storage: StorageConfig{
			Root:      viper.GetString("STORAGE_ROOT"),
			PublicURL: viper.GetString("STORAGE_PUBLIC_URL"),
		},
		Pricing: PricingConfig{
			BundleCategory:     viper.GetString("PRICING_BUNDLE_CATEGORY"),
			BundleSize:         viper.GetInt("PRICING_BUNDLE_SIZE"),
			BundlePrice:        viper.GetFloat64("PRICING_BUNDLE_PRICE"),
			DefaultWeightGrams: viper.GetInt("PRICING_DEFAULT_WEIGHT_GRAMS"),
		},
		Cart: CartConfig{
			TTL: time.Duration(viper.GetInt("CART_TTL_HOURS")) * time.Hour,
		},
		Catalog: CatalogConfig{
			RetryCount: viper.GetInt("CATALOG_RETRY_COUNT"),
			RetryDelay: time.Duration(viper.GetInt("CATALOG_RETRY_DELAY_MS")) * time.Millisecond,
		},
		Store: StoreConfig{
			Name:          viper.GetString("STORE_NAME"),
			WhatsAppPhone: viper.GetString("STORE_WHATSAPP_PHONE"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
