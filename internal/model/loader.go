package model

import (
	"context"
	"fmt"

	"github.com/hyperjump/umekomi/internal/config"
	"github.com/hyperjump/umekomi/internal/embedding"
	"go.uber.org/zap"
)

// Loader instantiates an embedding backend for a model identifier.
type Loader interface {
	Backend() string
	Load(ctx context.Context, id string) (embedding.Embedder, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc struct {
	Name string
	Fn   func(ctx context.Context, id string) (embedding.Embedder, error)
}

func (l LoaderFunc) Backend() string { return l.Name }

func (l LoaderFunc) Load(ctx context.Context, id string) (embedding.Embedder, error) {
	return l.Fn(ctx, id)
}

// NewBackendLoader returns the Loader for cfg.Backend (onnx, ollama or mock).
func NewBackendLoader(cfg config.ModelConfig, logger *zap.Logger) (Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "onnx", "":
		return LoaderFunc{Name: "onnx", Fn: func(_ context.Context, id string) (embedding.Embedder, error) {
			return loadONNX(cfg, id, logger)
		}}, nil
	case "ollama":
		return LoaderFunc{Name: "ollama", Fn: func(ctx context.Context, id string) (embedding.Embedder, error) {
			e := embedding.NewOllamaEmbedder(id, embedding.WithOllamaBaseURL(cfg.OllamaBaseURL))
			if err := e.Warmup(ctx); err != nil {
				_ = e.Close()
				return nil, err
			}
			return e, nil
		}}, nil
	case "mock":
		return LoaderFunc{Name: "mock", Fn: func(_ context.Context, _ string) (embedding.Embedder, error) {
			return embedding.NewMockEmbedder(cfg.Dimensions), nil
		}}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q (want onnx, ollama or mock)", cfg.Backend)
	}
}

func loadONNX(cfg config.ModelConfig, id string, logger *zap.Logger) (embedding.Embedder, error) {
	pooling, err := embedding.ParsePooling(cfg.Pooling)
	if err != nil {
		return nil, err
	}
	files, err := embedding.ResolveONNXModel(id, cfg.ModelsDir, cfg.ModelFile, cfg.VocabFile)
	if err != nil {
		return nil, err
	}

	var tokenizer embedding.Tokenizer = &embedding.SimpleTokenizer{}
	if files.Vocab != "" {
		wp, err := embedding.LoadWordPieceTokenizer(files.Vocab, cfg.LowercaseOrDefault())
		if err != nil {
			return nil, err
		}
		tokenizer = wp
		logger.Debug("WordPiece tokenizer loaded", zap.String("vocab", files.Vocab), zap.Int("size", wp.VocabSize()))
	} else {
		logger.Warn("no vocab.txt found, falling back to hash tokenizer", zap.String("model_file", files.Model))
	}

	logger.Debug("ONNX model resolved", zap.String("model_file", files.Model), zap.String("pooling", string(pooling)))
	e, err := embedding.NewONNXEmbedder(embedding.ONNXOptions{
		ModelPath:      files.Model,
		RuntimeLibrary: cfg.RuntimeLibrary,
		Tokenizer:      tokenizer,
		Dimensions:     cfg.Dimensions,
		MaxTokens:      cfg.MaxTokens,
		Pooling:        pooling,
		OutputName:     cfg.OutputName,
		Normalize:      cfg.NormalizeOrDefault(),
		CacheSize:      cfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
