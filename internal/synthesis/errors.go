package synthesis

import (
	"errors"
	"fmt"
	"strings"

	"kcourse/internal/gateway/provider"
)

// Stage names the pipeline step a failure escaped from.
type Stage string

const (
	StageUpload  Stage = "upload"
	StageVision  Stage = "vision"
	StageImage   Stage = "image"
	StageRefine  Stage = "refine"
	StagePlan    Stage = "plan"
	StageBudget  Stage = "budget"
	StagePersist Stage = "persist"
)

// ProviderError is the failure type of every model call.
type ProviderError = provider.ProviderError

// FieldProblem is one rejected request field.
type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports caller supplied data that is missing or malformed.
// It is raised before any model is called.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid trip request"
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}
	return "invalid trip request: " + strings.Join(parts, "; ")
}

// MalformedModelOutputError means a model answered with text that does not
// fit the structured shape the caller asked for.
type MalformedModelOutputError struct {
	Source string
	Reason string
	Raw    string
}

func (e *MalformedModelOutputError) Error() string {
	if e.Source == "" {
		return "malformed model output: " + e.Reason
	}
	return fmt.Sprintf("malformed model output from %s: %s", e.Source, e.Reason)
}

// VisionProviderError wraps a failed photo description call.
type VisionProviderError struct {
	Provider string
	Err      error
}

func (e *VisionProviderError) Error() string {
	return fmt.Sprintf("vision model %s: %v", e.Provider, e.Err)
}

func (e *VisionProviderError) Unwrap() error { return e.Err }

// ImageSynthesisError covers a failed generation call and a response that
// carried no image.
type ImageSynthesisError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ImageSynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image synthesis %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("image synthesis %s: %s", e.Provider, e.Reason)
}

func (e *ImageSynthesisError) Unwrap() error { return e.Err }

// StorageError is an object store failure.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("object store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistenceError is a failed record store insert.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist trip plan: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PipelineError wraps every failure escaping SynthesizeTripPlan.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("trip plan synthesis failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of a pipeline error, or "" for other errors.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
