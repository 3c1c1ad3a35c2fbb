package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenValidityDuration)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/test")
	t.Setenv("SECRET_KEY", "envsecret")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddr)
	assert.Equal(t, "postgres://u:p@localhost:5432/test", cfg.DatabaseDSN)
	assert.Equal(t, "envsecret", cfg.SecretKey)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
}

func TestParseEnv_MissingVarsKeepDefaults(t *testing.T) {
	t.Setenv("ADDRESS", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")

	cfg := &Config{}
	cfg.LoadDefaults()
	before := *cfg
	parseEnv(cfg)

	assert.Equal(t, before, *cfg)
}

func TestParseEnv_InvalidDurationIgnored(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 60*time.Minute, cfg.AccessTokenValidityDuration)
}
