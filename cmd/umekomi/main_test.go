package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/internal/config"
	"github.com/hyperjump/umekomi/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after texts are moved first",
			args:     []string{"hello world", "-output", "json"},
			expected: []string{"-output", "json", "hello world"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "hello world"},
			expected: []string{"-output", "json", "hello world"},
		},
		{
			name:     "texts only returns unchanged",
			args:     []string{"one", "two"},
			expected: []string{"one", "two"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("first\r\n\nthird\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "", "third"}, lines)
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	t.Setenv(config.EnvModelName, "")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_defaultPathMissingUsesDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	t.Setenv(config.EnvModelName, "")
	origWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origWd) }()
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, config.DefaultModelName, cfg.Model.Name)
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvHost, "")
	t.Setenv(config.EnvPort, "")

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_explicitPathMissing(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitConfig(t *testing.T) {
	t.Setenv(config.EnvModelName, "")
	t.Setenv(config.EnvPort, "")
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, initConfig(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModelName, cfg.Model.Name)
	assert.Equal(t, 8080, cfg.Server.Port)

	err = initConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	t.Setenv(config.EnvModelName, "sentence-transformers/paraphrase-MiniLM-L3-v2")
	require.NoError(t, initConfig(path, true))
	t.Setenv(config.EnvModelName, "")
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sentence-transformers/paraphrase-MiniLM-L3-v2", cfg.Model.Name)
}

func testConfig(backend, modelName string) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", ShutdownTimeout: 5 * time.Second},
		Model:  config.ModelConfig{Name: modelName, Backend: backend, ModelsDir: "/nonexistent-models-dir"},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestServe_invalidModelAbortsStartup(t *testing.T) {
	cfg := testConfig("onnx", "nonexistent/model-xyz")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = serve(context.Background(), cfg, zap.NewNop(), ln)
	require.Error(t, err)
	assert.True(t, model.IsLoadError(err), "got %v", err)
}

func TestServe_unknownBackend(t *testing.T) {
	err := serve(context.Background(), testConfig("tensorflow", "x"), zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestServe_servesUntilCanceled(t *testing.T) {
	cfg := testConfig("mock", config.DefaultModelName)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zap.NewNop(), ln) }()

	require.Eventually(t, func() bool {
		_, herr := healthViaHTTP(base)
		return herr == nil
	}, 5*time.Second, 20*time.Millisecond)
	status, err := healthViaHTTP(base)
	require.NoError(t, err)
	assert.Equal(t, api.StatusHealthy, status)

	resp, err := embedViaHTTP(base, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Len(t, resp.Embeddings[0], cfg.Model.Dimensions)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestEmbedViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req api.EmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := api.EmbedResponse{}
		for range req.Texts {
			out.Embeddings = append(out.Embeddings, []float32{1, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer ts.Close()

	resp, err := embedViaHTTP(ts.URL+"/", []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
}

func TestEmbedViaHTTP_serverDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"No texts provided"}`))
	}))
	defer ts.Close()

	_, err := embedViaHTTP(ts.URL, []string{})
	require.Error(t, err)
	assert.Equal(t, "server returned 400: No texts provided", err.Error())
}

func TestHealthViaHTTP_notReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"Model not loaded"}`))
	}))
	defer ts.Close()

	_, err := healthViaHTTP(ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503: Model not loaded")
}

func TestInfoViaHTTP_plainErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := infoViaHTTP(ts.URL)
	require.Error(t, err)
	assert.Equal(t, "server returned 502: bad gateway", err.Error())
}
