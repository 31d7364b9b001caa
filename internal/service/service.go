// Package service implements the embed, health and info operations on top of
// the loaded model, returning classified errors.
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/internal/model"
	"go.uber.org/zap"
)

// ModelSource provides the loaded model handle. *model.Manager implements it.
type ModelSource interface {
	Handle() (*model.Handle, error)
}

// Service validates requests and delegates inference to the model handle.
type Service struct {
	models  ModelSource
	logger  *zap.Logger
	version string
}

// New returns a Service reading the model from models.
func New(models ModelSource, logger *zap.Logger, version string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{models: models, logger: logger, version: version}
}

// Embed returns one vector per text, in input order. Readiness is checked
// before the batch is validated. The whole batch succeeds or fails.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	h, err := s.models.Handle()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(texts) == 0 {
		return nil, invalidArgument(MsgNoTexts)
	}

	start := time.Now()
	// A client disconnect does not interrupt an in-flight batch.
	vecs, err := h.EmbedBatch(context.WithoutCancel(ctx), texts)
	if err == nil {
		err = checkShape(vecs, len(texts))
	}
	if err != nil {
		s.logger.Error("Embedding error", zap.Int("texts", len(texts)), zap.Error(err))
		return nil, internal(err)
	}
	s.logger.Debug("embedded batch",
		zap.Int("texts", len(texts)),
		zap.Int("dimensions", len(vecs[0])),
		zap.Duration("elapsed", time.Since(start)),
	)
	return vecs, nil
}

// checkShape verifies one vector per text, a single dimensionality and finite values.
func checkShape(vecs [][]float32, n int) error {
	if len(vecs) != n {
		return fmt.Errorf("model returned %d embeddings for %d texts", len(vecs), n)
	}
	dims := len(vecs[0])
	if dims == 0 {
		return fmt.Errorf("model returned an empty embedding")
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), dims)
		}
		for j, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("embedding %d has a non-finite value at index %d", i, j)
			}
		}
	}
	return nil
}

// Health reports healthy iff the model is loaded.
func (s *Service) Health() (api.HealthStatus, error) {
	if _, err := s.models.Handle(); err != nil {
		return "", unavailable(err)
	}
	return api.StatusHealthy, nil
}

// Info describes the loaded model.
func (s *Service) Info() (*api.InfoResponse, error) {
	h, err := s.models.Handle()
	if err != nil {
		return nil, unavailable(err)
	}
	return &api.InfoResponse{
		Model:      h.ID(),
		Backend:    h.Backend(),
		Dimensions: h.Dimensions(),
		Version:    s.version,
		LoadedAt:   h.LoadedAt(),
	}, nil
}
