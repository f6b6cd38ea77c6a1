package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg := fromViper(viper.New())

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 5, cfg.Pipeline.AuditRingSize)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.SessionIdle)
	assert.Equal(t, 60*time.Second, cfg.Redis.FeedTTL)
	assert.False(t, cfg.DB.JournalEnabled)
	assert.Empty(t, cfg.Redis.Addr, "sin Redis la caché queda desactivada")
}

func TestFromViper_LeeVariables(t *testing.T) {
	v := viper.New()
	v.Set("BACKEND_BASE_URL", "https://records.example.com/api")
	v.Set("BACKEND_TIMEOUT_SECONDS", "12")
	v.Set("BACKEND_MAX_RPS", "2.5")
	v.Set("JOURNAL_ENABLED", "true")
	v.Set("SESSION_IDLE_MINUTES", "0")
	v.Set("AUDIT_RING_SIZE", "x")

	cfg := fromViper(v)
	assert.Equal(t, 12*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2.5, cfg.Backend.MaxRPS)
	assert.True(t, cfg.DB.JournalEnabled)
	assert.Equal(t, time.Duration(0), cfg.Pipeline.SessionIdle, "0 desactiva la expiración")
	assert.Equal(t, 5, cfg.Pipeline.AuditRingSize, "un valor ilegible usa el defecto")
}

func TestValidate(t *testing.T) {
	cfg := fromViper(viper.New())
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BACKEND_BASE_URL")

	cfg.JWT.Secret = "s"
	cfg.Backend.BaseURL = "records"
	assert.ErrorContains(t, cfg.Validate(), "inválida")

	cfg.Backend.BaseURL = "https://records.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "pipeline", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/pipeline?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
