package report

import (
	"errors"
	"fmt"

	"gridetl/internal/model"
)

var (
	// ErrTerminal is returned for any transition out of completed or failed.
	ErrTerminal = errors.New("report: generation log is terminal")
	// ErrTransition is returned for a skipped or backwards transition.
	ErrTransition = errors.New("report: invalid status transition")
)

var next = map[model.GenerationStatus]model.GenerationStatus{
	model.StatusQueued:     model.StatusExtracting,
	model.StatusExtracting: model.StatusMerging,
	model.StatusMerging:    model.StatusGenerating,
	model.StatusGenerating: model.StatusUploading,
	model.StatusUploading:  model.StatusCompleted,
}

// Transition checks that from may move to to. Failed is reachable from every
// non-terminal status; otherwise only the next stage is.
func Transition(from, to model.GenerationStatus) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminal, from, to)
	}
	if to == model.StatusFailed || next[from] == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransition, from, to)
}
