package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cr3t-value")
	cfg, err := loadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, "studentaid_ledger_v2", cfg.Ledger.Key)
	assert.InDelta(t, 25.0, cfg.Ledger.UrgencyWeight, 0.0001)
	assert.Equal(t, 2*time.Second, cfg.Ledger.RetryInterval)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Jwt.Expiry)
	assert.Equal(t, BusMemory, cfg.EventBus.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "file")
	t.Setenv("LEDGER_URGENCY_WEIGHT", "2.5")
	t.Setenv("LEDGER_WRITE_BEHIND", "true")
	t.Setenv("AUTH_JWT_SECRET", "s3cr3t-value")
	t.Setenv("EVENT_BUS_DRIVER", "kafka")
	t.Setenv("IDEMPOTENCY_TTL", "90m")

	cfg, err := loadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Ledger.Backend)
	assert.InDelta(t, 2.5, cfg.Ledger.UrgencyWeight, 0.0001)
	assert.True(t, cfg.Ledger.WriteBehind)
	assert.Equal(t, "s3cr3t-value", cfg.Auth.Jwt.Secret)
	assert.Equal(t, BusKafka, cfg.EventBus.Driver)
	assert.Equal(t, 90*time.Minute, cfg.Idempotency.TTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"LEDGER_BACKEND": "mongo"}},
		{"unknown bus", map[string]string{"EVENT_BUS_DRIVER": "nats"}},
		{"zero idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}},
		{"zero weight", map[string]string{"LEDGER_URGENCY_WEIGHT": "0"}},
		{"postgres without url", map[string]string{"LEDGER_BACKEND": "postgres", "DATABASE_URL": ""}},
		{"s3 without bucket", map[string]string{"LEDGER_BACKEND": "s3", "S3_BUCKET": ""}},
		{"empty jwt secret", map[string]string{"AUTH_JWT_SECRET": ""}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "s3cr3t-value")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := loadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFindEnvFile(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.ledgertest"), []byte("X=1\n"), 0o600))
	t.Chdir(nested)

	found, err := FindEnvFile(".env.ledgertest")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env.ledgertest"), found)

	_, err = FindEnvFile(".env.does-not-exist")
	assert.ErrorIs(t, err, os.ErrNotExist)

	abs, err := FindEnvFile(found)
	require.NoError(t, err)
	assert.Equal(t, found, abs)
}

func TestFindEnvFileStopsAtModuleRoot(t *testing.T) {
	dir := t.TempDir()
	module := filepath.Join(dir, "module")
	require.NoError(t, os.MkdirAll(module, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.outside"), []byte("X=1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(module, "go.mod"), []byte("module example.com/m\n"), 0o600))
	t.Chdir(module)

	_, err := FindEnvFile(".env.outside")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMaskValue(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****able", maskValue("postgres://u:p@h/db?sslmode=disable"))
}

func TestLoadRequiresJwtSecret(t *testing.T) {
	// Unset entirely, not just empty.
	t.Setenv("AUTH_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("AUTH_JWT_SECRET"))

	_, err := loadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}
