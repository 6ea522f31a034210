package cockpit

import (
	"errors"

	"github.com/born-ml/cockpit/internal/backprop"
)

// Sentinel errors for configuration conflicts the cockpit refuses to
// resolve silently. All are returned wrapped; match with errors.Is.
var (
	// ErrTransformConflict means two quantities requested the same
	// transform key with different functions.
	ErrTransformConflict = errors.New("conflicting transforms for the same key")

	// ErrDuplicateRequest means two quantities requested the same
	// extension kind with incompatible configurations.
	ErrDuplicateRequest = errors.New("conflicting extension requests of the same kind")

	// ErrLogKeyConflict means two quantities emitted different values
	// under the same step and key.
	ErrLogKeyConflict = errors.New("conflicting log values for the same key")

	// ErrUnsupportedProblem means the training problem lacks a capability
	// the configured quantities require. It is the engine's capability
	// sentinel re-exported under the orchestrator's vocabulary.
	ErrUnsupportedProblem = backprop.ErrUnsupported
)
