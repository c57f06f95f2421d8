package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/hermes/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		input     string
		env       map[string]string
		wantBase  string
		wantErr   errors.ErrorCode
		wantLevel string
	}{
		{
			name:     "empty document gets defaults",
			format:   FormatYAML,
			input:    "",
			wantBase: DefaultBaseURL,
		},
		{
			name:     "yaml with trailing slash",
			format:   FormatYAML,
			input:    "version: \"1.0\"\nbase_url: http://triage.local/api/v1/\n",
			wantBase: "http://triage.local/api/v1",
		},
		{
			name:      "toml",
			format:    FormatTOML,
			input:     "version = \"1.0\"\nbase_url = \"https://triage.example.com/api/v1\"\n\n[logging]\nlevel = \"debug\"\n",
			wantBase:  "https://triage.example.com/api/v1",
			wantLevel: "debug",
		},
		{
			name:     "env expansion with default",
			format:   FormatYAML,
			input:    "base_url: ${HERMES_TEST_BACKEND:-http://fallback:9000/api/v1}\n",
			wantBase: "http://fallback:9000/api/v1",
		},
		{
			name:     "env override wins",
			format:   FormatYAML,
			input:    "base_url: http://file/api/v1\n",
			env:      map[string]string{"HERMES_BASE_URL": "http://env/api/v1"},
			wantBase: "http://env/api/v1",
		},
		{
			name:    "schema rejects wrong type",
			format:  FormatYAML,
			input:   "base_url: 42\n",
			wantErr: errors.ErrCodeConfigInvalid,
		},
		{
			name:    "semantic check rejects relative url",
			format:  FormatYAML,
			input:   "base_url: /api/v1\n",
			wantErr: errors.ErrCodeConfigValidation,
		},
		{
			name:    "stream url scheme",
			format:  FormatYAML,
			input:   "stream_url: ftp://backend/stream\n",
			wantErr: errors.ErrCodeConfigValidation,
		},
		{
			name:    "operator id must be uuid",
			format:  FormatYAML,
			input:   "operator_id: alice\n",
			wantErr: errors.ErrCodeConfigValidation,
		},
		{
			name:    "malformed yaml",
			format:  FormatYAML,
			input:   "base_url: [\n",
			wantErr: errors.ErrCodeConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HERMES_BASE_URL", "")
			t.Setenv("HERMES_STREAM_URL", "")
			t.Setenv("HERMES_OPERATOR_ID", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFromBytes([]byte(tt.input), tt.format)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, cfg.BaseURL)
			assert.Equal(t, "1.0", cfg.Version)

			if tt.wantLevel != "" {
				var logCfg struct {
					Level string `yaml:"level"`
				}
				require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
				assert.Equal(t, tt.wantLevel, logCfg.Level)
			}
		})
	}
}

func TestStreamEndpoint(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL+"/stream", cfg.StreamEndpoint())

	cfg.StreamURL = "ws://backend:8002/ws"
	assert.Equal(t, "ws://backend:8002/ws", cfg.StreamEndpoint())
}

func TestMockServerDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("mock_server:\n  emit_interval: 15s\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, ":8002", cfg.MockServer.Addr)
	require.NotNil(t, cfg.MockServer.Seed)
	assert.True(t, *cfg.MockServer.Seed)

	every, err := cfg.MockServer.EmitEvery()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, every)

	_, err = LoadFromBytes([]byte("mock_server:\n  emit_interval: soon\n"), FormatYAML)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestReconnectDefaults(t *testing.T) {
	cfg := Default()
	delay, err := cfg.Reconnect.Delay()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, delay)
	assert.Equal(t, 1.5, cfg.Reconnect.Multiplier)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)

	cfg, err = LoadFromBytes([]byte("reconnect:\n  initial_delay: 500ms\n  max_attempts: 2\n"), FormatYAML)
	require.NoError(t, err)
	delay, err = cfg.Reconnect.Delay()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, delay)
	assert.Equal(t, 1.5, cfg.Reconnect.Multiplier)
	assert.Equal(t, 2, cfg.Reconnect.MaxAttempts)

	_, err = LoadFromBytes([]byte("reconnect:\n  initial_delay: -1s\n"), FormatYAML)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestFindConfigFileWalksUp(t *testing.T) {
	t.Setenv("HERMES_HOME", t.TempDir())
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hermes.toml"), []byte("version = \"1.0\"\n"), 0644))

	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "hermes.toml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestFindConfigFileFallsBackToUserDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HERMES_HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0755))
	global := filepath.Join(home, "config", "hermes.yml")
	require.NoError(t, os.WriteFile(global, []byte("version: \"1.0\"\n"), 0644))

	path, err := FindConfigFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, global, path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var root map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Equal(t, "Hermes Configuration", root["title"])

	props, ok := root["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"version", "base_url", "stream_url", "operator_id", "mock_server"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Extensions")
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermes.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://one/api/v1\n"), 0644))

	reloaded := make(chan *Config, 4)
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	w, err := NewWatcher(path, time.Millisecond, logrus.NewEntry(logger), func(c *Config) { reloaded <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Replace atomically so the watcher never sees a half-written file.
	tmp := filepath.Join(dir, "hermes.yml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("base_url: http://two/api/v1\n"), 0644))
	require.NoError(t, os.Rename(tmp, path))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.BaseURL == "http://two/api/v1" {
				return
			}
		case <-deadline:
			t.Fatal("watcher never reloaded")
		}
	}
}
