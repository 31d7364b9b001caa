package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/internal/service"
	"go.uber.org/zap"
)

// embedBody mirrors api.EmbedRequest with pointer elements so a JSON null
// element is detected instead of decoding to "".
type embedBody struct {
	Texts []*string `json:"texts"`
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	texts, err := decodeEmbedRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.respondError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}

	embeddings, err := s.svc.Embed(r.Context(), texts)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, api.EmbedResponse{Embeddings: embeddings})
}

// decodeEmbedRequest reads exactly one JSON object whose "texts" is a list of
// strings. A missing or null "texts" is an error; an empty list is not.
func decodeEmbedRequest(body io.Reader) ([]string, error) {
	dec := json.NewDecoder(body)
	var req embedBody
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		if err == nil || isSyntaxError(err) {
			return nil, errors.New("unexpected data after JSON object")
		}
		return nil, err
	}
	if req.Texts == nil {
		return nil, errors.New("texts is required")
	}
	texts := make([]string, len(req.Texts))
	for i, t := range req.Texts {
		if t == nil {
			return nil, fmt.Errorf("texts[%d] must be a string", i)
		}
		texts[i] = *t
	}
	return texts, nil
}

func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Health()
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, api.HealthResponse{Status: status})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Info()
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

// respondServiceError is the only place service error kinds become HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch service.KindOf(err) {
	case service.KindServiceUnavailable:
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case service.KindInvalidArgument:
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		detail := err.Error()
		if !s.config.ExposeInternalErrorsOrDefault() {
			detail = http.StatusText(http.StatusInternalServerError)
		}
		s.respondError(w, http.StatusInternalServerError, detail)
	}
}

// respondJSON encodes data before writing the status line so an encode
// failure can still become a 500.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("encode response failed", zap.Int("status", status), zap.Error(err))
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(api.ErrorResponse{Detail: "failed to encode response: " + err.Error()})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, api.ErrorResponse{Detail: detail})
}
