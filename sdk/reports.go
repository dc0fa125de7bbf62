package sentra

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

// ReportsService builds post-session analysis reports.
type ReportsService struct {
	client *Client
}

type ReportRequest struct {
	SessionID string `json:"session_id"`
}

type Report struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	OverallRisk      string    `json:"overall_risk"`
	OverallRiskScore float64   `json:"overall_risk_score"`
	AlertCount       int       `json:"alert_count"`
	Summary          string    `json:"summary"`
	CreatedAt        time.Time `json:"created_at"`
}

// Generate builds a report for a completed streaming session.
func (s *ReportsService) Generate(ctx context.Context, req *ReportRequest) (*Report, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, core.NewInvalidRequestErrorWithParam("session_id must not be empty", "session_id")
	}

	var report Report
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/reports", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Get fetches a previously generated report.
func (s *ReportsService) Get(ctx context.Context, id string) (*Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.NewInvalidRequestErrorWithParam("id must not be empty", "id")
	}

	var report Report
	if err := s.client.doGET(ctx, "/v1/reports/"+url.PathEscape(id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}
