package contracts

import (
	"errors"
	"fmt"
)

// ErrStageNotFound indicates an unknown stage name was requested. This is a
// routing or programming error and must surface as a not-found outcome to the
// caller, never silently default to the start stage.
var ErrStageNotFound = errors.New("stage not found")

// StageNotFoundError wraps ErrStageNotFound with the offending name.
func StageNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrStageNotFound, name)
}

// ErrSubmissionFailed indicates the terminal submission collaborator reported
// a failure. The review stage treats it as blocking and keeps the user there
// with a retryable error message.
var ErrSubmissionFailed = errors.New("plea submission failed")
