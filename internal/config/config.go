package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	// DatabaseURL is optional; without it the local store lives in memory.
	DatabaseURL string
	// CORSOrigins lists the web origins allowed to call the API.
	CORSOrigins []string

	Firebase struct {
		ProjectID       string
		CredentialsFile string
		APIKey          string
		// APIKeySecret names a Secret Manager secret holding APIKey.
		APIKeySecret  string
		IdentityURL   string
		TokenURL      string
		StorageBucket string
		TokenCheck    time.Duration
	}

	Fallback struct {
		Email    string
		Password string
		Name     string
	}

	Mail struct {
		SendGridAPIKey string
		From           string
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:  getenvDefault("SERVER_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CORSOrigins: splitList(getenvDefault("CORS_ORIGINS", "http://localhost:3000")),
	}

	cfg.Firebase.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.Firebase.ProjectID == "" {
		cfg.Firebase.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if cfg.Firebase.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID must be set")
	}
	cfg.Firebase.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.Firebase.APIKey = os.Getenv("FIREBASE_API_KEY")
	cfg.Firebase.APIKeySecret = os.Getenv("FIREBASE_API_KEY_SECRET")
	if cfg.Firebase.APIKey == "" && cfg.Firebase.APIKeySecret == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY or FIREBASE_API_KEY_SECRET must be set")
	}
	cfg.Firebase.IdentityURL = getenvDefault("FIREBASE_IDENTITY_URL", "https://identitytoolkit.googleapis.com/v1")
	cfg.Firebase.TokenURL = getenvDefault("FIREBASE_TOKEN_URL", "https://securetoken.googleapis.com/v1")
	cfg.Firebase.StorageBucket = getenvDefault("FIREBASE_STORAGE_BUCKET", cfg.Firebase.ProjectID+".appspot.com")

	tokenCheck, err := time.ParseDuration(getenvDefault("AUTH_TOKEN_CHECK_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_CHECK_INTERVAL: %w", err)
	}
	cfg.Firebase.TokenCheck = tokenCheck

	cfg.Fallback.Email = getenvDefault("FALLBACK_ADMIN_EMAIL", "admin@gigantefleur.com")
	cfg.Fallback.Password = getenvDefault("FALLBACK_ADMIN_PASSWORD", "admin123")
	cfg.Fallback.Name = getenvDefault("FALLBACK_ADMIN_NAME", "Admin User")

	cfg.Mail.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.Mail.From = getenvDefault("MAIL_FROM", "orders@gigantefleur.com")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
