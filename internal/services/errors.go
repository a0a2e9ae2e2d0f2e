package services

import (
	"errors"
	"fmt"

	"model-market/internal/models"

	"github.com/google/uuid"
)

// ErrVersionConflict signals a lost compare-and-swap on a model's version.
// Callers retry or surface a conflict; it never leaves a partial write behind.
var ErrVersionConflict = errors.New("model was modified concurrently")

// ValidationError reports malformed input. Surfaced directly to the caller; no retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// InvalidTransitionError reports an illegal state-machine edge, naming the
// attempted (from, to) pair.
type InvalidTransitionError struct {
	From models.ModelStatus
	To   models.ModelStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid model transition from %s to %s", e.From, e.To)
}

// JobAlreadyRunningError reports a duplicate train request. It carries the
// in-flight job's ID so clients can poll it instead of retrying the create.
type JobAlreadyRunningError struct {
	JobID uuid.UUID
}

func (e *JobAlreadyRunningError) Error() string {
	return fmt.Sprintf("training job %s is already in flight for this model", e.JobID)
}

// ProgressRegressionError reports an out-of-order progress callback. Progress
// is monotone by contract; regressions are dropped without failing the job.
type ProgressRegressionError struct {
	JobID    uuid.UUID
	Recorded int
	Reported int
}

func (e *ProgressRegressionError) Error() string {
	return fmt.Sprintf("progress regression for job %s: recorded %d%%, reported %d%%",
		e.JobID, e.Recorded, e.Reported)
}

// NotPublishableError reports a publish/lease precondition violation.
type NotPublishableError struct {
	Status models.ModelStatus
}

func (e *NotPublishableError) Error() string {
	return fmt.Sprintf("model is not publishable in status %s", e.Status)
}

// DuplicateLeaseError reports a second concurrent lease attempt for the same
// (lessee, model) pair. It carries the surviving lease's ID when known.
type DuplicateLeaseError struct {
	LeaseID uuid.UUID
}

func (e *DuplicateLeaseError) Error() string {
	return "an active lease already exists for this model"
}
