package queue

import "errors"

// Sentinel errors, grounded on the teacher's pkg/queue/types.go
// (ErrNoSessionsAvailable, ErrAtCapacity).
var (
	// ErrNoJobsAvailable indicates Claim found nothing pending.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrJobNotFound indicates Fail was called with an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
)

// CorruptPayloadError marks a queue row whose payload JSON no longer matches
// its job_type's current schema — e.g. a row written by an older version of
// this pipeline. Surfaced instead of panicking so a single bad legacy row
// doesn't take down the whole Claim batch.
type CorruptPayloadError struct {
	EntryID string
	JobType string
	Err     error
}

func (e *CorruptPayloadError) Error() string {
	return "corrupt queue payload for entry " + e.EntryID + " (job_type=" + e.JobType + "): " + e.Err.Error()
}

func (e *CorruptPayloadError) Unwrap() error { return e.Err }

// Retryable is false: a corrupt payload won't fix itself on retry.
func (e *CorruptPayloadError) Retryable() bool { return false }
