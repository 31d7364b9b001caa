package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvModelName, EnvBackend, EnvModelsDir, EnvHost, EnvPort, EnvRuntimeLibrary, EnvOllamaBaseURL} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
  shutdown_timeout: 3s
model:
  name: "my-org/tiny-embedder"
  models_dir: "./models"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout = %s, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Model.Name != "my-org/tiny-embedder" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if want := filepath.Join(dir, "models"); cfg.Model.ModelsDir != want {
		t.Errorf("models_dir = %s, want %s", cfg.Model.ModelsDir, want)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0600))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_envOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvModelName, "env/model")
	t.Setenv(EnvPort, "9100")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  name: file/model\nserver:\n  port: 9000\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env/model", cfg.Model.Name)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestDefault_usesModelNameFallback(t *testing.T) {
	clearEnv(t)
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, DefaultModelName, cfg.Model.Name)
	assert.Equal(t, "onnx", cfg.Model.Backend)
	assert.Empty(t, cfg.Model.ModelFile, "empty paths must not be expanded")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvModelName:     " org/model ",
		EnvBackend:       "mock",
		EnvHost:          "127.0.0.1",
		EnvPort:          "7000",
		EnvOllamaBaseURL: "http://ollama:11434",
	}
	cfg := &Config{}
	require.NoError(t, ApplyEnv(cfg, func(k string) string { return env[k] }))
	assert.Equal(t, "org/model", cfg.Model.Name)
	assert.Equal(t, "mock", cfg.Model.Backend)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "http://ollama:11434", cfg.Model.OllamaBaseURL)
}

func TestApplyEnv_invalidPort(t *testing.T) {
	for _, v := range []string{"abc", "0", "70000"} {
		cfg := &Config{}
		err := ApplyEnv(cfg, func(k string) string {
			if k == EnvPort {
				return v
			}
			return ""
		})
		assert.Error(t, err, "port %q", v)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout: got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Model.Name != "sentence-transformers/all-MiniLM-L6-v2" {
		t.Errorf("default model: got %s", cfg.Model.Name)
	}
	if cfg.Model.Dimensions != 384 || cfg.Model.MaxTokens != 256 {
		t.Errorf("default dims/tokens: got %d/%d", cfg.Model.Dimensions, cfg.Model.MaxTokens)
	}
	if cfg.Model.Pooling != "mean" || cfg.Model.OutputName != "last_hidden_state" {
		t.Errorf("default pooling/output: got %s/%s", cfg.Model.Pooling, cfg.Model.OutputName)
	}
}

func TestServerConfig_ExposeInternalErrorsOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		s := &ServerConfig{}
		assert.True(t, s.ExposeInternalErrorsOrDefault())
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		s := &ServerConfig{ExposeInternalErrors: &f}
		assert.False(t, s.ExposeInternalErrorsOrDefault())
	})
}

func TestModelConfig_flagsDefaultTrue(t *testing.T) {
	m := &ModelConfig{}
	assert.True(t, m.NormalizeOrDefault())
	assert.True(t, m.LowercaseOrDefault())
	f := false
	m.Normalize, m.Lowercase = &f, &f
	assert.False(t, m.NormalizeOrDefault())
	assert.False(t, m.LowercaseOrDefault())
}

func TestSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 9090},
		Model:  ModelConfig{Name: "a/b", Backend: "mock"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Model.Backend != "mock" {
		t.Errorf("loaded backend: got %s", loaded.Model.Backend)
	}
}
