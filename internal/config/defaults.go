package config

import "time"

// DefaultModelName is the model loaded when neither the config file nor MODEL_NAME sets one.
const DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModelName
	}
	if cfg.Model.Backend == "" {
		cfg.Model.Backend = "onnx"
	}
	if cfg.Model.ModelsDir == "" {
		cfg.Model.ModelsDir = "/usr/local/var/umekomi/models"
	}
	if cfg.Model.Dimensions == 0 {
		cfg.Model.Dimensions = 384
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 256
	}
	if cfg.Model.Pooling == "" {
		cfg.Model.Pooling = "mean"
	}
	if cfg.Model.OutputName == "" {
		cfg.Model.OutputName = "last_hidden_state"
	}
	if cfg.Model.CacheSize == 0 {
		cfg.Model.CacheSize = 10000
	}
	if cfg.Model.OllamaBaseURL == "" {
		cfg.Model.OllamaBaseURL = "http://localhost:11434"
	}
}
