package sentra

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

// PlansService generates guidance action plans from alerts or sessions.
type PlansService struct {
	client *Client
}

// ActionPlanRequest describes the incident an action plan should address.
// Either SessionID or Transcript must be set.
type ActionPlanRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Category   string `json:"category,omitempty"`
	Severity   string `json:"severity,omitempty"`

	// Audience tailors the plan wording: "parent" (default) or "educator".
	Audience string `json:"audience,omitempty"`
}

type ActionPlanStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ActionPlan struct {
	ID        string           `json:"id"`
	Category  string           `json:"category"`
	Audience  string           `json:"audience"`
	Summary   string           `json:"summary"`
	Steps     []ActionPlanStep `json:"steps"`
	CreatedAt time.Time        `json:"created_at"`
}

// Create generates a new action plan.
func (s *PlansService) Create(ctx context.Context, req *ActionPlanRequest) (*ActionPlan, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	if strings.TrimSpace(req.SessionID) == "" && strings.TrimSpace(req.Transcript) == "" {
		return nil, core.NewInvalidRequestError("either session_id or transcript is required")
	}

	var plan ActionPlan
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/plans", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Get fetches a previously generated action plan.
func (s *PlansService) Get(ctx context.Context, id string) (*ActionPlan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.NewInvalidRequestErrorWithParam("id must not be empty", "id")
	}

	var plan ActionPlan
	if err := s.client.doGET(ctx, "/v1/plans/"+url.PathEscape(id), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Delete removes a stored action plan.
func (s *PlansService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.NewInvalidRequestErrorWithParam("id must not be empty", "id")
	}
	return s.client.doDELETE(ctx, "/v1/plans/"+url.PathEscape(id))
}
