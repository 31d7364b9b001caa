// Package config provides configuration loading and structs for the umekomi server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug  bool         `yaml:"debug"`
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// ExposeInternalErrors controls whether inference error messages are
	// returned to callers in 500 responses. Defaults to true when unset.
	ExposeInternalErrors *bool `yaml:"expose_internal_errors"`
	// Gops starts the gops diagnostics agent.
	Gops bool `yaml:"gops"`
}

// ExposeInternalErrorsOrDefault returns whether 500 bodies carry the underlying message; defaults to true when unset.
func (s *ServerConfig) ExposeInternalErrorsOrDefault() bool {
	if s.ExposeInternalErrors != nil {
		return *s.ExposeInternalErrors
	}
	return true
}

// Addr returns host:port for the listener.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ModelConfig selects and tunes the embedding model backend.
type ModelConfig struct {
	// Name is the model identifier, e.g. "sentence-transformers/all-MiniLM-L6-v2".
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`

	// ONNX backend.
	ModelsDir      string `yaml:"models_dir"`
	ModelFile      string `yaml:"model_file"`
	VocabFile      string `yaml:"vocab_file"`
	RuntimeLibrary string `yaml:"runtime_library"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	Pooling        string `yaml:"pooling"`
	OutputName     string `yaml:"output_name"`
	Normalize      *bool  `yaml:"normalize"`
	Lowercase      *bool  `yaml:"lowercase"`
	// CacheSize is the LRU capacity in texts; negative disables the cache.
	CacheSize int `yaml:"cache_size"`

	// Ollama backend.
	OllamaBaseURL string `yaml:"ollama_base_url"`
}

// NormalizeOrDefault returns whether vectors are L2-normalized; defaults to true when unset.
func (m *ModelConfig) NormalizeOrDefault() bool {
	if m.Normalize != nil {
		return *m.Normalize
	}
	return true
}

// LowercaseOrDefault returns whether the WordPiece tokenizer lowercases input; defaults to true when unset.
func (m *ModelConfig) LowercaseOrDefault() bool {
	if m.Lowercase != nil {
		return *m.Lowercase
	}
	return true
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := finish(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config built only from the environment and defaults.
// Used when no config file exists.
func Default() (*Config, error) {
	var cfg Config
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	if err := finish(&cfg, wd); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config, configDir string) error {
	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return err
	}
	ApplyDefaults(cfg)

	cfg.Model.ModelsDir = expandPath(cfg.Model.ModelsDir, configDir)
	cfg.Model.ModelFile = expandPath(cfg.Model.ModelFile, configDir)
	cfg.Model.VocabFile = expandPath(cfg.Model.VocabFile, configDir)
	cfg.Model.RuntimeLibrary = expandPath(cfg.Model.RuntimeLibrary, configDir)
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
