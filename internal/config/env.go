package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvModelName      = "MODEL_NAME"
	EnvBackend        = "UMEKOMI_BACKEND"
	EnvModelsDir      = "UMEKOMI_MODELS_DIR"
	EnvHost           = "UMEKOMI_HOST"
	EnvPort           = "UMEKOMI_PORT"
	EnvRuntimeLibrary = "ONNXRUNTIME_LIB"
	EnvOllamaBaseURL  = "OLLAMA_BASE_URL"
)

// ApplyEnv overrides cfg with any non-empty environment variables.
// getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Model.Name, EnvModelName)
	set(&cfg.Model.Backend, EnvBackend)
	set(&cfg.Model.ModelsDir, EnvModelsDir)
	set(&cfg.Model.RuntimeLibrary, EnvRuntimeLibrary)
	set(&cfg.Model.OllamaBaseURL, EnvOllamaBaseURL)
	set(&cfg.Server.Host, EnvHost)

	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}
	return nil
}
