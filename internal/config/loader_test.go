package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-key", cfg.LLM.MediaAPIKey)
	assert.True(t, cfg.LLM.Search)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 16000, cfg.Audio.CaptureSampleRate)
	assert.True(t, cfg.Assistant.VoiceEnabled)
	assert.Zero(t, cfg.Assistant.HistoryTurns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "JARVIS", cfg.Persona.Name)
	assert.Equal(t, "Charon", cfg.Persona.Voice)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JARVIS_LLM_PROVIDER", "ollama")
	t.Setenv("JARVIS_LLM_TEXT_MODEL", "llama3.1")
	t.Setenv("JARVIS_STORE_BACKEND", "redis")
	t.Setenv("JARVIS_STORE_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("JARVIS_ASSISTANT_OFFLINE", "true")
	t.Setenv("JARVIS_ASSISTANT_HISTORY_TURNS", "12")
	t.Setenv("JARVIS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.1", cfg.LLM.TextModel)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Store.RedisURL)
	assert.True(t, cfg.Assistant.ForceOffline)
	assert.Equal(t, 12, cfg.Assistant.HistoryTurns)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JARVIS_AUDIO_BACKEND=none\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("JARVIS_AUDIO_BACKEND") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Audio.Backend)
}

func TestLoadPersona_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	override := `
name: FRIDAY
language: English
region: Ireland
keywords:
  urgency: [urgent]
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	persona, err := LoadPersona(path)
	require.NoError(t, err)

	assert.Equal(t, "FRIDAY", persona.Name)
	assert.Equal(t, "English", persona.Language)
	assert.Equal(t, []string{"urgent"}, persona.Keywords.Urgency)
	// fields absent from the override keep their defaults
	assert.Equal(t, "Charon", persona.Voice)
	assert.Equal(t, []string{"código", "sistema", "servidor"}, persona.Keywords.Engineering)
	assert.Contains(t, persona.Offline.TimeReply, "%s")
}

func TestLoadPersona_Errors(t *testing.T) {
	_, err := LoadPersona(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [unterminated"), 0o644))
	_, err = LoadPersona(bad)
	assert.Error(t, err)
}
