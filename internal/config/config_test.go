package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad(t *testing.T) {
	t.Run("creates from template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claude", "claude.yml")
		cfg, err := Load(path)
		require.NoError(t, err)
		require.FileExists(t, path)
		require.Equal(t, path, cfg.SettingsPath)

		want := Default()
		require.Equal(t, want.BaseURL, cfg.BaseURL)
		require.Equal(t, want.UserAgent, cfg.UserAgent)
		require.Equal(t, want.Model, cfg.Model)
		require.Equal(t, want.Timezone, cfg.Timezone)
		require.Equal(t, want.Timeout, cfg.Timeout)
		require.Equal(t, want.OrgCacheTTL, cfg.OrgCacheTTL)
		require.Equal(t, want.WordWrap, cfg.WordWrap)
		require.Empty(t, cfg.SessionKey)
		require.NotEmpty(t, cfg.CachePath)

		bts, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(bts), "# "+Help["session-key"])
	})

	t.Run("keeps existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claude.yml")
		require.NoError(t, os.WriteFile(path, []byte("session-key: from-file\nmodel: claude-2.0\ntimeout: 45s\ncache-path: /tmp/x\n"), 0o600))
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "from-file", cfg.SessionKey)
		require.Equal(t, "claude-2.0", cfg.Model)
		require.Equal(t, 45*time.Second, cfg.Timeout)
		require.Equal(t, "/tmp/x", cfg.CachePath)
		require.Equal(t, claude.BaseURL, cfg.BaseURL, "unset keys keep their defaults")
	})

	t.Run("environment wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claude.yml")
		require.NoError(t, os.WriteFile(path, []byte("session-key: from-file\n"), 0o600))
		t.Setenv("CLAUDE_SESSION_KEY", "from-env")
		t.Setenv("CLAUDE_TIMEOUT", "2m")
		t.Setenv("CLAUDE_RAW", "true")
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "from-env", cfg.SessionKey)
		require.Equal(t, 2*time.Minute, cfg.Timeout)
		require.True(t, cfg.Raw)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claude.yml")
		require.NoError(t, os.WriteFile(path, []byte("timeout: [nope"), 0o600))
		_, err := Load(path)
		var cerr Error
		require.ErrorAs(t, err, &cerr)
		require.Equal(t, "Could not parse settings file.", cerr.Reason)
	})

	t.Run("bad env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claude.yml")
		t.Setenv("CLAUDE_WORD_WRAP", "wide")
		_, err := Load(path)
		var cerr Error
		require.ErrorAs(t, err, &cerr)
		require.Equal(t, "Could not parse environment into settings file.", cerr.Reason)
	})
}

func TestTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude.yml")
	require.NoError(t, createConfigFile(path))
	bts, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(bts, &cfg))
	require.Equal(t, Default().Timeout, cfg.Timeout)
	require.Equal(t, claude.DefaultUserAgent, cfg.UserAgent)
}

func TestClient(t *testing.T) {
	t.Run("no session key", func(t *testing.T) {
		_, err := Config{SettingsPath: "/x/claude.yml"}.Client()
		require.ErrorIs(t, err, ErrNoSessionKey)
		var cerr Error
		require.ErrorAs(t, err, &cerr)
		require.Contains(t, cerr.Reason, "/x/claude.yml")
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := Default()
		cfg.SessionKey = "key"
		cfg.BaseURL = "http://localhost:1234"
		cfg.Model = string(claude.Claude3Opus)
		cfg.Timezone = string(claude.NewYork)
		out, err := cfg.Client()
		require.NoError(t, err)
		require.Equal(t, "key", out.SessionKey)
		require.Equal(t, "http://localhost:1234", out.BaseURL)
		require.Equal(t, claude.Claude3Opus, out.Model)
		require.Equal(t, claude.NewYork, out.Timezone)
		require.Equal(t, claude.SpoofedHeaders(), out.Headers)
	})
}
