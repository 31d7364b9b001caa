// Package api defines the JSON request and response bodies of the HTTP API.
package api

import "time"

// EmbedRequest is the body of POST /embed.
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

// EmbedResponse is the body of a successful POST /embed: one vector per
// input text, in input order.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HealthStatus is the value reported by GET /health.
type HealthStatus string

// StatusHealthy is returned only when the model is loaded.
const StatusHealthy HealthStatus = "healthy"

// HealthResponse is the body of a successful GET /health.
type HealthResponse struct {
	Status HealthStatus `json:"status"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Model      string    `json:"model"`
	Backend    string    `json:"backend"`
	Dimensions int       `json:"dimensions"`
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
