package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JobStatus is the lifecycle status reported by the optimization job service
type JobStatus string

// Job statuses
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobRequest is the body submitted to the optimization job service
type JobRequest struct {
	JobDescription string      `json:"jobDescription" validate:"required,min=50"`
	Bullets        []string    `json:"bullets" validate:"required,min=1,max=30,dive,required,max=1000"`
	Settings       JobSettings `json:"settings"`
}

// JobSettings is the settings block of a JobRequest
type JobSettings struct {
	Tone     string `json:"tone" validate:"omitempty,oneof=professional confident concise"`
	MaxLen   int    `json:"maxLen" validate:"omitempty,min=60,max=300"`
	Variants int    `json:"variants" validate:"omitempty,min=1,max=3"`
}

// SubmitResponse is returned when a job is accepted
type SubmitResponse struct {
	JobID           string    `json:"jobId"`
	Status          JobStatus `json:"status"`
	TotalCandidates int       `json:"totalCandidates"`
}

// StatusResponse is returned by the job status endpoint
type StatusResponse struct {
	JobID               string    `json:"jobId,omitempty"`
	Status              JobStatus `json:"status"`
	ProcessedCandidates int       `json:"processedCandidates"`
	TotalCandidates     int       `json:"totalCandidates"`
	Error               string    `json:"error,omitempty"`
}

// ResultsResponse is returned by the job results endpoint
type ResultsResponse struct {
	JobID      string      `json:"jobId,omitempty"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one optimization candidate; the first is the one shown to the visitor
type Candidate struct {
	OriginalBullets []string        `json:"original_bullets"`
	RevisedBullets  []RevisedBullet `json:"revised_bullets"`
	Scores          []Score         `json:"scores,omitempty"`
}

// RevisedBullet holds the variants for one bullet. The service may send a
// single string or a list of strings; both decode to a list.
type RevisedBullet []string

// UnmarshalJSON accepts either a string or an array of strings
func (r *RevisedBullet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RevisedBullet{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("revised bullet must be a string or list of strings: %w", err)
	}
	*r = list
	return nil
}

// Score is a per-bullet score. Numbers and {"score": n} / {"overall": n}
// objects are accepted; anything else decodes as absent.
type Score struct {
	Value float64
	Valid bool
}

// UnmarshalJSON decodes the loosely typed score payload
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Score{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Score{Value: n, Valid: true}
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		for _, key := range []string{"score", "overall"} {
			if v, ok := obj[key].(float64); ok {
				*s = Score{Value: v, Valid: true}
				return nil
			}
		}
	}
	*s = Score{}
	return nil
}

// MarshalJSON encodes valid scores as numbers and invalid ones as null
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// JobOutcome is the result of checking a job. It is one of JobProcessing,
// JobCompleted or JobFailed.
type JobOutcome interface {
	jobOutcome()
}

// JobProcessing means the job is still running
type JobProcessing struct {
	Processed int
	Total     int
}

// JobCompleted carries the job's candidates
type JobCompleted struct {
	Candidates []Candidate
}

// JobFailed carries the reason reported by the service
type JobFailed struct {
	Reason string
}

func (JobProcessing) jobOutcome() {}
func (JobCompleted) jobOutcome()  {}
func (JobFailed) jobOutcome()     {}

// Outcome converts a status response into a JobOutcome. Completed
// outcomes carry no candidates; the caller fetches results separately.
func (r StatusResponse) Outcome() (JobOutcome, error) {
	switch r.Status {
	case JobStatusProcessing, "":
		return JobProcessing{Processed: r.ProcessedCandidates, Total: r.TotalCandidates}, nil
	case JobStatusCompleted:
		return JobCompleted{}, nil
	case JobStatusFailed:
		return JobFailed{Reason: r.Error}, nil
	default:
		return nil, fmt.Errorf("unknown job status %q", r.Status)
	}
}
