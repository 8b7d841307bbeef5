// Package config - application configuration from the environment
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kaviselvaram-dev/docvault/encryption"
)

// DefaultAllowedExtensions upload extensions permitted when ALLOWED_EXT is unset
var DefaultAllowedExtensions = []string{"pdf", "png", "jpg", "jpeg"}

// SMTPConfig outbound email delivery settings
type SMTPConfig struct {
	// Host SMTP server host
	Host string `validate:"required"`
	// Port SMTP server port
	Port int `validate:"required,gt=0"`
	// User SMTP auth user
	User string
	// Password SMTP auth password
	Password string
	// FromAddress sender address
	FromAddress string `validate:"required,email"`
}

// Config runtime configuration for the document vault
type Config struct {
	// Port HTTP port to listen on
	Port string `validate:"required"`
	// DBFile Sqlite registry DB file
	DBFile string `validate:"required"`
	// UploadDir directory holding ciphertext blobs
	UploadDir string `validate:"required"`
	// EncryptionKey the decoded 256-bit process encryption key
	EncryptionKey []byte `validate:"required,len=32"`
	// SessionSecret secret signing session tokens
	SessionSecret string `validate:"required"`
	// AllowedExtensions permitted upload file extensions, without dots
	AllowedExtensions []string `validate:"required,min=1"`
	// SMTP outbound email delivery settings
	SMTP SMTPConfig
	// SweepInterval period between reminder sweeps
	SweepInterval time.Duration `validate:"required,gt=0"`
	// ReminderWindow sweep window reach on either side of now
	ReminderWindow time.Duration `validate:"required,gt=0"`
}

/*
Load read configuration from environment variables.

The encryption key is non-negotiable: a missing or malformed ENCRYPTION_KEY
is an error here, and the caller must treat it as fatal before serving any
traffic.

	@returns parsed configuration
*/
func Load() (Config, error) {
	keyB64 := os.Getenv("ENCRYPTION_KEY")
	if keyB64 == "" {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY not set")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY is not valid base64 [%w]", err)
	}
	if len(key) != encryption.KeyLen {
		return Config{}, fmt.Errorf(
			"ENCRYPTION_KEY must decode to %d bytes, got %d", encryption.KeyLen, len(key),
		)
	}

	smtpPort, err := envInt("SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}

	smtpUser := os.Getenv("SMTP_USER")
	fromAddress := os.Getenv("FROM_EMAIL")
	if fromAddress == "" {
		fromAddress = smtpUser
	}

	sweepInterval, err := envDuration("REMINDER_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	reminderWindow, err := envDuration("REMINDER_WINDOW", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:              envDefault("APP_PORT", "8080"),
		DBFile:            envDefault("DB_FILE", "vault.db"),
		UploadDir:         envDefault("UPLOAD_DIR", "uploads"),
		EncryptionKey:     key,
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		AllowedExtensions: envList("ALLOWED_EXT", DefaultAllowedExtensions),
		SMTP: SMTPConfig{
			Host:        envDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:        smtpPort,
			User:        smtpUser,
			Password:    os.Getenv("SMTP_PASS"),
			FromAddress: fromAddress,
		},
		SweepInterval:  sweepInterval,
		ReminderWindow: reminderWindow,
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("configuration is not valid [%w]", err)
	}

	return cfg, nil
}

// envDefault read an environment variable with a fallback
func envDefault(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt read an integer environment variable with a fallback
func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid integer: '%s' [%w]", key, v, err)
	}
	return parsed, nil
}

// envDuration read a duration environment variable with a fallback
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid duration: '%s' [%w]", key, v, err)
	}
	return parsed, nil
}

// envList read a comma separated environment variable with a fallback
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
