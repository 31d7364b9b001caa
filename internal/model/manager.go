// Package model owns the lifecycle of the process-wide embedding model.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Manager loads the model once and hands out a read-only Handle.
type Manager struct {
	id     string
	loader Loader
	logger *zap.Logger

	mu        sync.Mutex
	attempted bool
	state     atomic.Int32
	handle    atomic.Pointer[Handle]
}

// NewManager returns a Manager in StateUninitialized.
func NewManager(id string, loader Loader, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{id: id, loader: loader, logger: logger}
}

// Initialize loads the model. It must run once, before the server accepts
// traffic. On failure the manager stays uninitialized and a *LoadError is returned.
func (m *Manager) Initialize(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempted {
		return nil, ErrAlreadyInitialized
	}
	m.attempted = true

	backend := m.loader.Backend()
	m.logger.Info("Loading model", zap.String("model", m.id), zap.String("backend", backend))
	start := time.Now()

	emb, err := m.loader.Load(ctx, m.id)
	if err == nil && emb.Dimensions() <= 0 {
		_ = emb.Close()
		err = fmt.Errorf("model reports %d dimensions", emb.Dimensions())
	}
	if err != nil {
		loadErr := &LoadError{ModelID: m.id, Backend: backend, Err: err}
		m.logger.Error("Failed to load model", zap.String("model", m.id), zap.String("backend", backend), zap.Error(err))
		return nil, loadErr
	}

	h := &Handle{id: m.id, backend: backend, embedder: emb, loadedAt: time.Now()}
	m.handle.Store(h)
	m.state.Store(int32(StateReady))
	m.logger.Info("Model loaded successfully",
		zap.String("model", m.id),
		zap.Int("dimensions", h.Dimensions()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return h, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Ready reports whether a model handle is available.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// Handle returns the loaded model, or ErrNotReady.
func (m *Manager) Handle() (*Handle, error) {
	if !m.Ready() {
		return nil, ErrNotReady
	}
	h := m.handle.Load()
	if h == nil {
		// Close raced with the state check.
		return nil, ErrNotReady
	}
	return h, nil
}

// ModelID returns the configured model identifier.
func (m *Manager) ModelID() string {
	return m.id
}

// Close releases the model. Afterwards the manager reports not ready.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Store(int32(StateUninitialized))
	h := m.handle.Swap(nil)
	if h == nil {
		return nil
	}
	if err := h.embedder.Close(); err != nil {
		return fmt.Errorf("close model %q: %w", h.id, err)
	}
	return nil
}

// IsLoadError reports whether err is a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
