package model

import (
	"context"
	"time"

	"github.com/hyperjump/umekomi/internal/embedding"
)

// Handle is a loaded, immutable reference to the embedding model.
type Handle struct {
	id       string
	backend  string
	embedder embedding.Embedder
	loadedAt time.Time
}

// ID returns the model identifier the handle was loaded from.
func (h *Handle) ID() string { return h.id }

// Backend returns the backend name, e.g. "onnx".
func (h *Handle) Backend() string { return h.backend }

// Dimensions returns the vector size produced by the model.
func (h *Handle) Dimensions() int { return h.embedder.Dimensions() }

// LoadedAt returns when the model finished loading.
func (h *Handle) LoadedAt() time.Time { return h.loadedAt }

// EmbedBatch runs inference for the whole batch in one call.
func (h *Handle) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return h.embedder.EmbedBatch(ctx, texts)
}
