package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.NotEmpty(t, cfg.NATSURL)

	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaURL)
	assert.True(t, cfg.LLM.PreferIndirection)
	assert.False(t, cfg.LLM.CacheEnabled)
	assert.Equal(t, 0.7, cfg.LLM.PassThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PREFER_INDIRECTION", "false")
	t.Setenv("PASS_THRESHOLD", "0.9")
	t.Setenv("LLM_CACHE_ENABLED", "true")
	t.Setenv("INDIRECTION_URL", "http://indirection:8090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "test-key", cfg.LLM.OpenAIKey)
	assert.False(t, cfg.LLM.PreferIndirection)
	assert.Equal(t, 0.9, cfg.LLM.PassThreshold)
	assert.True(t, cfg.LLM.CacheEnabled)
	assert.Equal(t, "http://indirection:8090", cfg.LLM.IndirectionURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("PASS_THRESHOLD", "high")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0.7, cfg.LLM.PassThreshold)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("default_is_valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("threshold_out_of_range", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.PassThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad_port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 0
		assert.Error(t, cfg.Validate())
	})
}
