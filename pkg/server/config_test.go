package server_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbot/whatsapp-sales-agent/pkg/server"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "wa-token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "555000")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := server.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "file", cfg.Memory.Store)
	assert.Equal(t, "data/conversations", cfg.Memory.Dir)
	assert.True(t, cfg.MetaEnabled())
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("MEMORY_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/sessions.db")

	cfg, err := server.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sqlite", cfg.Memory.Store)
	assert.Equal(t, "/tmp/sessions.db", cfg.Memory.SQLitePath)
}

func TestLoadConfig_YAMLFileWithEnvPrecedence(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
port: 7000
llm:
  model: gpt-4o
memory:
  store: file
  dir: /var/lib/salesagent
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := server.LoadConfig(path)
	require.NoError(t, err)

	// The env variable wins over the file.
	assert.Equal(t, 9000, cfg.Port)
	// File values fill in where no env variable is set.
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "/var/lib/salesagent", cfg.Memory.Dir)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("missing API key", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "wa-token")
		_, err := server.LoadConfig("")
		assert.ErrorContains(t, err, "LLM_API_KEY")
	})

	t.Run("no transport", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-test")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "")
		t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
		t.Setenv("WHATSAPP_VERIFY_TOKEN", "")
		t.Setenv("TWILIO_ACCOUNT_SID", "")
		t.Setenv("TWILIO_AUTH_TOKEN", "")
		t.Setenv("TWILIO_WHATSAPP_FROM", "")
		_, err := server.LoadConfig("")
		assert.ErrorContains(t, err, "transport")
	})

	t.Run("partial Meta credentials", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-test")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "wa-token")
		t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
		t.Setenv("WHATSAPP_VERIFY_TOKEN", "")
		_, err := server.LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("partial Twilio credentials", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-test")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "wa-token")
		t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "555000")
		t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
		t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
		_, err := server.LoadConfig("")
		assert.ErrorContains(t, err, "TWILIO")
	})

	t.Run("unknown provider", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("LLM_PROVIDER", "gemini")
		_, err := server.LoadConfig("")
		assert.ErrorContains(t, err, "provider")
	})

	t.Run("unknown store", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("MEMORY_STORE", "redis")
		_, err := server.LoadConfig("")
		assert.ErrorContains(t, err, "store")
	})
}
