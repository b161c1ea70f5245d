package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"CONFIG_FILE", "HOST", "PORT", "GIN_MODE", "READ_TIMEOUT", "WRITE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"DB_DRIVER", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"MONGO_URI", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST",
	"EMAIL_HOST", "EMAIL_PORT", "EMAIL_USER", "EMAIL_PASS", "EMAIL_FROM", "EMAIL_FROM_NAME",
	"REMINDER_ENABLED", "REMINDER_CRON", "REMINDER_TIMEZONE", "REMINDER_RUN_TIMEOUT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST",
	"LOG_LEVEL", "LOG_DEVELOPMENT",
}

// clearEnv blanks every variable Load reads; getEnv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BCryptCost)
	assert.Equal(t, "0 0 * * *", cfg.Reminder.Cron)
	assert.Equal(t, 10*time.Minute, cfg.Reminder.RunTimeout)
	assert.Equal(t, "Todo App Reminder", cfg.Mail.FromName)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.MailConfigured())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_PORT", "465")
	t.Setenv("EMAIL_USER", "reminders@example.com")
	t.Setenv("EMAIL_PASS", "secret")
	t.Setenv("REMINDER_CRON", "30 7 * * *")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, ":8081", cfg.GetServerAddr())
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Contains(t, cfg.GetDatabaseDSN(), "@tcp(localhost:5432)/todo_app")
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "reminders@example.com", cfg.Mail.From, "sender defaults to the SMTP user")
	assert.True(t, cfg.MailConfigured())
	assert.Equal(t, "30 7 * * *", cfg.Reminder.Cron)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMAIL_PORT", "not-a-number")
	t.Setenv("TOKEN_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_RejectsDefaultSecretInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "release")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_RejectsInvalidSchedule(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad cron", "REMINDER_CRON", "every day"},
		{"bad timezone", "REMINDER_TIMEZONE", "Mars/Olympus_Mons"},
		{"bad driver", "DB_DRIVER", "oracle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "7000"
database:
  driver: sqlite
  name: todo_test
reminder:
  cron: "0 6 * * *"
  timezone: UTC
  run_timeout: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "todo_test.db", cfg.GetDatabaseDSN())
	assert.Equal(t, "0 6 * * *", cfg.Reminder.Cron)
	assert.Equal(t, 2*time.Minute, cfg.Reminder.RunTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}
