package optimizer

import (
	"context"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// JobClient is the optimization job service
type JobClient interface {
	Submit(ctx context.Context, req types.JobRequest) (types.SubmitResponse, error)
	Status(ctx context.Context, jobID string) (types.StatusResponse, error)
	Results(ctx context.Context, jobID string) (types.ResultsResponse, error)
}

// JDFetcher loads job description text from a posting URL
type JDFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// UsageGate decides whether a visitor may run the optimizer and records runs.
// *usage.Tracker implements it.
type UsageGate interface {
	CanUse(ctx context.Context) (types.UsageDecision, error)
	RecordUse(ctx context.Context) (types.UsageData, error)
}
