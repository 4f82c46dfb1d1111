package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WISHFORGE_POSTGRES_USER", "postgres")
	t.Setenv("WISHFORGE_POSTGRES_HOST", "localhost")
	t.Setenv("WISHFORGE_POSTGRES_PORT", "5432")
	t.Setenv("WISHFORGE_POSTGRES_DB", "wishforge")
	t.Setenv("WISHFORGE_POSTGRES_SSLMODE", "disable")
	t.Setenv("WISHFORGE_REDIS_HOST", "localhost")
	t.Setenv("WISHFORGE_REDIS_PORT", "6379")
	t.Setenv("WISHFORGE_NATS_HOST", "localhost")
	t.Setenv("WISHFORGE_NATS_PORT", "4222")
	t.Setenv("WISHFORGE_MODEL_API_URL", "https://model.example.com")
	t.Setenv("WISHFORGE_MODEL_API_KEY", "mk_test")
	t.Setenv("WISHFORGE_PAYMENT_API_URL", "https://pay.example.com")
	t.Setenv("WISHFORGE_PAYMENT_API_KEY", "pk_test")
}

func TestNew_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ExtractMaxAttempts)
	assert.Equal(t, int64(1), cfg.GenerationCost)
	assert.Equal(t, int64(3), cfg.StarterCredits)
	assert.Equal(t, 12*time.Second, cfg.ModelTimeout)
	assert.Equal(t, "postgres://postgres:@localhost:5432/wishforge?sslmode=disable", cfg.DSN())
	assert.Equal(t, "nats://localhost:4222", cfg.NatsAddr())
}

func TestNew_MissingModelCredentialsFailsFast(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WISHFORGE_MODEL_API_KEY", "")

	_, err := New()
	require.ErrorContains(t, err, "WISHFORGE_MODEL_API_URL/KEY")
}

func TestNew_MissingPaymentCredentialsFailsFast(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WISHFORGE_PAYMENT_API_URL", "")

	_, err := New()
	require.ErrorContains(t, err, "WISHFORGE_PAYMENT_API_URL/KEY")
}

func TestApiAddr(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)
	_, err = cfg.ApiAddr()
	require.Error(t, err, "API disabled by default")

	t.Setenv("WISHFORGE_API_ENABLED", "true")
	t.Setenv("WISHFORGE_API_PORT", "8080")
	cfg, err = New()
	require.NoError(t, err)

	addr, err := cfg.ApiAddr()
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)
}
