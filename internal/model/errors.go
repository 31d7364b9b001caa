package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Handle before a model has loaded.
	ErrNotReady = errors.New("model not loaded")
	// ErrAlreadyInitialized is returned when Initialize runs a second time.
	ErrAlreadyInitialized = errors.New("model initialization already attempted")
)

// LoadError reports a model that failed to load at startup.
type LoadError struct {
	ModelID string
	Backend string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model %q (%s backend): %v", e.ModelID, e.Backend, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
