// Package model holds the pieces shared by every estimator in the housing
// pipeline: fitted-state tracking, the estimator interfaces that model
// selection programs against, and gob persistence.
package model

import (
	"fmt"
	"sync"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// StateManager records whether an estimator has been fitted and the shape of
// the training matrix. Estimators hold it by composition; cross-validation
// fits many of them concurrently, so access is guarded.
//
// The exported fields survive a gob round trip, which lets a reloaded model
// keep rejecting matrices of the wrong width.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int

	mu sync.RWMutex
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted without changing its recorded shape.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// MarkFitted marks the model as fitted on an nSamples × nFeatures matrix.
func (s *StateManager) MarkFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset returns the state to unfitted, as at the start of a refit.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions records the shape of the training matrix.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the shape recorded at fit time.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming modelName and method when
// the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return herrors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures is RequireFitted plus a check that an input matrix has
// the nFeatures columns seen at fit time. A mismatch is a DimensionError
// on axis 1.
func (s *StateManager) RequireFeatures(modelName, method string, nFeatures int) error {
	s.mu.RLock()
	fitted, want := s.Fitted, s.NFeatures
	s.mu.RUnlock()

	if !fitted {
		return herrors.NewNotFittedError(modelName, method)
	}
	if nFeatures != want {
		return herrors.NewDimensionError(fmt.Sprintf("%s.%s", modelName, method), want, nFeatures, 1)
	}
	return nil
}
