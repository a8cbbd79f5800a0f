package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings read from the environment.
// Runtime tunables (tiers, points per dollar, venue details) live in the
// settings table instead.
type Config struct {
	DatabaseURL   string
	Port          string
	PublicBaseURL string
	FrontendURL   string
	AdminURL      string

	EmailProvider string
	EmailFrom     string
	ResendAPIKey  string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string

	StorageProvider    string
	FirebaseBucket     string
	GoogleCredentials  string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	AMQPURL string

	AdminEmail    string
	AdminPassword string
}

func LoadEnv() error {
	// A missing .env is fine; in production the variables are set directly.
	if err := godotenv.Load(); err != nil {
		return nil
	}
	return nil
}

// Load reads every known variable, applying defaults.
func Load() *Config {
	return &Config{
		DatabaseURL:   GetEnv("DATABASE_URL", ""),
		Port:          GetEnv("PORT", "8080"),
		PublicBaseURL: strings.TrimRight(GetEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		FrontendURL:   GetEnv("FRONTEND_URL", ""),
		AdminURL:      GetEnv("ADMIN_URL", ""),

		EmailProvider: strings.ToLower(GetEnv("EMAIL_PROVIDER", "smtp")),
		EmailFrom:     GetEnv("EMAIL_FROM", ""),
		ResendAPIKey:  GetEnv("RESEND_API_KEY", ""),
		SMTPHost:      GetEnv("SMTP_HOST", ""),
		SMTPPort:      GetEnv("SMTP_PORT", "587"),
		SMTPUsername:  GetEnv("SMTP_USERNAME", ""),
		SMTPPassword:  GetEnv("SMTP_PASSWORD", ""),

		StorageProvider:    strings.ToLower(GetEnv("STORAGE_PROVIDER", "firebase")),
		FirebaseBucket:     GetEnv("FIREBASE_STORAGE_BUCKET", ""),
		GoogleCredentials:  GetEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		AWSRegion:          GetEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        GetEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     GetEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: GetEnv("AWS_SECRET_ACCESS_KEY", ""),

		AMQPURL: GetEnv("AMQP_URL", ""),

		AdminEmail:    GetEnv("ADMIN_EMAIL", "admin@taproom.local"),
		AdminPassword: GetEnv("ADMIN_PASSWORD", "admin123"),
	}
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	cfg := Load()
	for _, w := range cfg.Warnings() {
		log.Println("WARNING: " + w)
	}

	return nil
}

// Warnings lists non-critical misconfigurations. The features they affect
// degrade instead of stopping the server.
func (c *Config) Warnings() []string {
	var warnings []string

	switch c.StorageProvider {
	case "s3":
		if c.AWSS3Bucket == "" {
			warnings = append(warnings, "AWS_S3_BUCKET not set - file uploads will fail")
		}
	case "firebase":
		if c.FirebaseBucket == "" {
			warnings = append(warnings, "FIREBASE_STORAGE_BUCKET not set - file uploads will fail")
		}
		if c.GoogleCredentials == "" {
			warnings = append(warnings, "GOOGLE_APPLICATION_CREDENTIALS not set - Firebase features may not work")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown STORAGE_PROVIDER %q - file uploads will fail", c.StorageProvider))
	}

	switch c.EmailProvider {
	case "resend":
		if c.ResendAPIKey == "" {
			warnings = append(warnings, "RESEND_API_KEY not set - email notifications will not work")
		}
	case "smtp":
		if c.SMTPHost == "" {
			warnings = append(warnings, "SMTP_HOST not set - email notifications will not work")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown EMAIL_PROVIDER %q - email notifications will not work", c.EmailProvider))
	}
	if c.EmailFrom == "" {
		warnings = append(warnings, "EMAIL_FROM not set - email notifications will not work")
	}

	if c.FrontendURL == "" {
		warnings = append(warnings, "FRONTEND_URL not set - CORS may not work correctly")
	}
	if c.AdminURL == "" {
		warnings = append(warnings, "ADMIN_URL not set")
	}
	if c.AMQPURL == "" {
		warnings = append(warnings, "AMQP_URL not set - domain events will not be published")
	}

	return warnings
}

// AllowedOrigins returns the configured CORS origins, skipping blanks.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range []string{c.FrontendURL, c.AdminURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
