package optimizer

import "fmt"

// JobErrorKind distinguishes terminal job outcomes
type JobErrorKind string

// Terminal job error kinds
const (
	JobTimeout JobErrorKind = "timeout"
	JobFailed  JobErrorKind = "failed"
)

// JobError is a terminal job state. Both kinds require starting over.
type JobError struct {
	JobID    string
	Kind     JobErrorKind
	Reason   string
	Attempts int
}

func (e *JobError) Error() string {
	switch e.Kind {
	case JobTimeout:
		return fmt.Sprintf("optimization timed out after %d status checks", e.Attempts)
	default:
		if e.Reason != "" {
			return fmt.Sprintf("optimization failed: %s", e.Reason)
		}
		return "optimization failed"
	}
}

// TransportError wraps a failed call to the job service
type TransportError struct {
	Op    string
	JobID string
	Cause error
}

func (e *TransportError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("could not %s for job %s: %v", e.Op, e.JobID, e.Cause)
	}
	return fmt.Sprintf("could not %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StepError is returned when an operation's preconditions do not hold
type StepError struct {
	Step   int
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Reason)
}

// UsageError is returned when the visitor has no optimizer runs left
type UsageError struct {
	PaidCredits int
}

func (e *UsageError) Error() string {
	return "no optimizer runs left; purchase credits to continue"
}

// IndexError is returned for a bullet index outside the list
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bullet index %d out of range [0,%d)", e.Index, e.Len)
}
