package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, DefaultMaxInputBytes, cfg.Parser.MaxInputBytes)
	assert.Equal(t, "TXT", cfg.Parser.DefaultFormat)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "diagnostics.report.parsed", cfg.NATS.Subject)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DIAGPARSE_SERVER_PORT", "9090")
	t.Setenv("DIAGPARSE_PARSER_MAX_INPUT_BYTES", "1024")
	t.Setenv("DIAGPARSE_NATS_URL", "nats://localhost:4222")
	t.Setenv("DIAGPARSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1024, cfg.Parser.MaxInputBytes)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "DIAGPARSE_SERVER_PORT", "70000"},
		{"unknown environment", "DIAGPARSE_SERVER_ENVIRONMENT", "qa"},
		{"unknown format", "DIAGPARSE_PARSER_DEFAULT_FORMAT", "DOCX"},
		{"zero input cap", "DIAGPARSE_PARSER_MAX_INPUT_BYTES", "0"},
		{"unknown log level", "DIAGPARSE_LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagparse.yaml")
	content := []byte("server:\n  port: 7070\n  environment: production\nparser:\n  default_format: XML\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, EnvProduction, cfg.Server.Environment)
	assert.Equal(t, "XML", cfg.Parser.DefaultFormat)
	assert.Equal(t, 20, cfg.Server.RateBurst)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = LoadFile("")
	assert.Error(t, err)
}
