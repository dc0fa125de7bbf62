package sentra

import (
	"context"
	"net/http"
	"strings"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

// DetectionService runs one-shot safety classification over text.
type DetectionService struct {
	client *Client
}

// DetectionRequest carries the text to classify plus optional context
// (speaker ages, relationship, prior alerts) that sharpens the analysis.
type DetectionRequest struct {
	Text    string         `json:"text"`
	Context map[string]any `json:"context,omitempty"`
}

// DetectionResult is the classifier's verdict for one request.
type DetectionResult struct {
	Detected    bool     `json:"detected"`
	Categories  []string `json:"categories,omitempty"`
	Severity    string   `json:"severity"`
	RiskScore   float64  `json:"risk_score"`
	Explanation string   `json:"explanation,omitempty"`
}

// Bullying classifies the text for bullying behavior.
func (s *DetectionService) Bullying(ctx context.Context, req *DetectionRequest) (*DetectionResult, error) {
	return s.analyze(ctx, "bullying", req)
}

// Grooming classifies the text for grooming patterns.
func (s *DetectionService) Grooming(ctx context.Context, req *DetectionRequest) (*DetectionResult, error) {
	return s.analyze(ctx, "grooming", req)
}

// Unsafe classifies the text for generally unsafe content.
func (s *DetectionService) Unsafe(ctx context.Context, req *DetectionRequest) (*DetectionResult, error) {
	return s.analyze(ctx, "unsafe", req)
}

func (s *DetectionService) analyze(ctx context.Context, kind string, req *DetectionRequest) (*DetectionResult, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, core.NewInvalidRequestErrorWithParam("text must not be empty", "text")
	}

	var result DetectionResult
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/detect/"+kind, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
