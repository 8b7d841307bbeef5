package config_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/kaviselvaram-dev/docvault/config"
	"github.com/kaviselvaram-dev/docvault/encryption"
	"github.com/stretchr/testify/assert"
)

func clearVaultEnv(t *testing.T) {
	for _, key := range []string{
		"ENCRYPTION_KEY", "SESSION_SECRET", "APP_PORT", "DB_FILE", "UPLOAD_DIR",
		"ALLOWED_EXT", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
		"FROM_EMAIL", "REMINDER_SWEEP_INTERVAL", "REMINDER_WINDOW",
	} {
		t.Setenv(key, "")
	}
}

func validTestKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, encryption.KeyLen))
}

func TestConfigRequiresEncryptionKey(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	clearVaultEnv(t)
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("FROM_EMAIL", "vault@unit-testing.dev")

	// Case 0: key absent
	{
		_, err := config.Load()
		assert.Error(err)
	}

	// Case 1: key is not base64
	{
		t.Setenv("ENCRYPTION_KEY", "%%% not base64 %%%")
		_, err := config.Load()
		assert.Error(err)
	}

	// Case 2: key decodes to the wrong length
	{
		t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 16)))
		_, err := config.Load()
		assert.Error(err)
	}

	// Case 3: proper 256-bit key
	{
		t.Setenv("ENCRYPTION_KEY", validTestKey())
		cfg, err := config.Load()
		assert.Nil(err)
		assert.Len(cfg.EncryptionKey, encryption.KeyLen)
	}
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	clearVaultEnv(t)
	t.Setenv("ENCRYPTION_KEY", validTestKey())
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("FROM_EMAIL", "vault@unit-testing.dev")

	cfg, err := config.Load()
	assert.Nil(err)

	assert.Equal("8080", cfg.Port)
	assert.Equal("vault.db", cfg.DBFile)
	assert.Equal("uploads", cfg.UploadDir)
	assert.Equal(config.DefaultAllowedExtensions, cfg.AllowedExtensions)
	assert.Equal("smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(587, cfg.SMTP.Port)
	assert.Equal("vault@unit-testing.dev", cfg.SMTP.FromAddress)
	assert.Equal(time.Minute, cfg.SweepInterval)
	assert.Equal(time.Minute, cfg.ReminderWindow)
}

func TestConfigOverrides(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	clearVaultEnv(t)
	t.Setenv("ENCRYPTION_KEY", validTestKey())
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_FILE", "/tmp/custom.db")
	t.Setenv("UPLOAD_DIR", "/tmp/blobs")
	t.Setenv("ALLOWED_EXT", "pdf, txt ,docx")
	t.Setenv("SMTP_HOST", "mail.unit-testing.dev")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USER", "mailer@unit-testing.dev")
	t.Setenv("SMTP_PASS", "hunter2")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "30s")
	t.Setenv("REMINDER_WINDOW", "2m")

	cfg, err := config.Load()
	assert.Nil(err)

	assert.Equal("9090", cfg.Port)
	assert.Equal("/tmp/custom.db", cfg.DBFile)
	assert.Equal("/tmp/blobs", cfg.UploadDir)
	assert.Equal([]string{"pdf", "txt", "docx"}, cfg.AllowedExtensions)
	assert.Equal("mail.unit-testing.dev", cfg.SMTP.Host)
	assert.Equal(2525, cfg.SMTP.Port)
	// The sender address falls back to the SMTP auth user
	assert.Equal("mailer@unit-testing.dev", cfg.SMTP.FromAddress)
	assert.Equal("hunter2", cfg.SMTP.Password)
	assert.Equal(time.Second*30, cfg.SweepInterval)
	assert.Equal(time.Minute*2, cfg.ReminderWindow)

	// Case 1: malformed SMTP port
	{
		t.Setenv("SMTP_PORT", "not-a-port")
		_, err := config.Load()
		assert.Error(err)
	}

	// Case 2: malformed sweep interval
	{
		t.Setenv("SMTP_PORT", "2525")
		t.Setenv("REMINDER_SWEEP_INTERVAL", "soon")
		_, err := config.Load()
		assert.Error(err)
	}

	// Case 3: session secret is required
	{
		t.Setenv("REMINDER_SWEEP_INTERVAL", "30s")
		t.Setenv("SESSION_SECRET", "")
		_, err := config.Load()
		assert.Error(err)
	}
}
