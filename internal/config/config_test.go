package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 300*time.Second, cfg.Scanner.Timeout)
	assert.Equal(t, "VulnerabilityValidator/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, "en", cfg.Report.Language)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  model: googleai/gemini-2.5-pro
store:
  kind: memory
report:
  language: es
http:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "googleai/gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, "es", cfg.Report.Language)
	assert.Equal(t, 8, cfg.HTTP.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout, "Unset values keep defaults")
	require.NotNil(t, cfg.Limits)
	assert.Equal(t, 2000, cfg.Limits.MaxResponseBodyForLLM)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REPORT_LANGUAGE", "es")
	t.Setenv("NETWORK_TIMEOUT", "5")
	t.Setenv("SEMGREP_TIMEOUT", "2m")
	t.Setenv("STORE_KIND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "es", cfg.Report.Language)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Scanner.Timeout)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Report.Language = "fr"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report language")

	cfg = Default()
	cfg.Store.Kind = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Kind = StoreRedis
	cfg.Store.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HTTP.Timeout = 0
	assert.Error(t, cfg.Validate())
}
