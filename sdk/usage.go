package sentra

import (
	"context"
	"time"
)

// UsageService reports quota consumption for the current billing period.
type UsageService struct {
	client *Client
}

type Usage struct {
	Plan             string    `json:"plan"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	StreamedSeconds  float64   `json:"streamed_seconds"`
	AnalyzedRequests int       `json:"analyzed_requests"`
	LimitSeconds     float64   `json:"limit_seconds"`
	RemainingSeconds float64   `json:"remaining_seconds"`
}

// Get returns usage for the current period.
func (s *UsageService) Get(ctx context.Context) (*Usage, error) {
	var usage Usage
	if err := s.client.doGET(ctx, "/v1/usage", &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}
