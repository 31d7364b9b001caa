package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	ollamaEmbedEndpoint  = "/api/embed"
	defaultOllamaTimeout = 60 * time.Second
)

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithOllamaBaseURL overrides the server URL.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(e *OllamaEmbedder) {
		if baseURL != "" {
			e.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithOllamaHTTPClient overrides the HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(e *OllamaEmbedder) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// OllamaEmbedder calls a remote Ollama server's /api/embed endpoint.
// Dimensions are learned from the first response (see Warmup).
type OllamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	dimensions atomic.Int64
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// NewOllamaEmbedder returns an embedder for model on an Ollama server.
func NewOllamaEmbedder(model string, opts ...OllamaOption) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:    defaultOllamaBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: defaultOllamaTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Warmup embeds a short text to verify the model is available and to learn its dimensions.
func (e *OllamaEmbedder) Warmup(ctx context.Context) error {
	_, err := e.Embed(ctx, "warmup")
	return err
}

// Embed returns the embedding for one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.model == "" {
		return nil, errors.New("ollama model is required")
	}
	if len(texts) == 0 {
		return nil, errors.New("no input texts provided")
	}
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+ollamaEmbedEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama API error: %s", out.Error)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}

	dims := int64(len(out.Embeddings[0]))
	if dims == 0 {
		return nil, errors.New("ollama returned an empty vector")
	}
	e.dimensions.CompareAndSwap(0, dims)
	if want := e.dimensions.Load(); dims != want {
		return nil, fmt.Errorf("ollama returned %d-dimensional vectors, expected %d", dims, want)
	}
	for i, v := range out.Embeddings {
		if int64(len(v)) != dims {
			return nil, fmt.Errorf("ollama vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
	}
	return out.Embeddings, nil
}

// Dimensions returns the vector size, or 0 before the first successful call.
func (e *OllamaEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
