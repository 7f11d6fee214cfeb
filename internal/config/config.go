package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string
	DB       Database
	RedisURL string
	AMQPURL  string
	JWT      JWT
	Firebase Firebase
	Email    Email
	SMS      SMS
	Storage  Storage
	Pricing  Pricing
}

type Database struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWT struct {
	Secret string
}

type Firebase struct {
	ServiceAccountPath string
}

// Email is the SMTP account lifecycle mails are sent from.
type Email struct {
	From     string
	Password string
	Host     string
	Port     string
}

func (e Email) Enabled() bool {
	return e.From != "" && e.Password != "" && e.Host != "" && e.Port != ""
}

// SMS holds the Africa's Talking credentials.
type SMS struct {
	Username string
	APIKey   string
	Sender   string
}

func (s SMS) Enabled() bool {
	return s.Username != "" && s.APIKey != ""
}

type Storage struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	S3Bucket     string
	BaseURL      string
	UploadDir    string
}

// UseS3 is true when every AWS setting is present.
func (s Storage) UseS3() bool {
	return s.AWSRegion != "" && s.AWSAccessKey != "" && s.AWSSecretKey != "" && s.S3Bucket != ""
}

// Pricing holds the fare rules shared by both domains.
type Pricing struct {
	FareCeiling       decimal.Decimal
	FleetBaseFare     decimal.Decimal
	FleetMinFare      decimal.Decimal
	DefaultRatePerKm  decimal.Decimal
	MaxDriverWorkload int64
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := &Config{
		Port: getenv("PORT", "8080"),
		DB: Database{
			Host:     getenv("DB_HOST", "localhost"),
			User:     getenv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getenv("DB_NAME", "fleetshare"),
			Port:     getenv("DB_PORT", "5432"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		AMQPURL:  os.Getenv("AMQP_URL"),
		JWT:      JWT{Secret: os.Getenv("JWT_SECRET")},
		Firebase: Firebase{ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")},
		Email: Email{
			From:     os.Getenv("EMAIL_FROM"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getenv("SMTP_PORT", "587"),
		},
		SMS: SMS{
			Username: os.Getenv("AT_USERNAME"),
			APIKey:   os.Getenv("AT_API_KEY"),
			Sender:   os.Getenv("AT_SENDER_ID"),
		},
		Storage: Storage{
			AWSRegion:    os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			BaseURL:      getenv("BASE_URL", "http://localhost:8080"),
			UploadDir:    getenv("UPLOAD_DIR", "./uploads"),
		},
	}

	var err error
	if cfg.Pricing, err = loadPricing(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func loadPricing() (Pricing, error) {
	var p Pricing
	var err error
	if p.FareCeiling, err = getDecimal("FARE_CEILING", "100000"); err != nil {
		return p, err
	}
	if p.FleetBaseFare, err = getDecimal("FLEET_BASE_FARE", "0"); err != nil {
		return p, err
	}
	if p.FleetMinFare, err = getDecimal("FLEET_MIN_FARE", "0"); err != nil {
		return p, err
	}
	if p.DefaultRatePerKm, err = getDecimal("FLEET_DEFAULT_RATE_PER_KM", "35"); err != nil {
		return p, err
	}
	workload := getenv("MAX_DRIVER_WORKLOAD", "3")
	if p.MaxDriverWorkload, err = strconv.ParseInt(workload, 10, 64); err != nil || p.MaxDriverWorkload < 1 {
		return p, fmt.Errorf("invalid MAX_DRIVER_WORKLOAD %q", workload)
	}
	return p, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getenv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
