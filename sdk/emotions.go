package sentra

import (
	"context"
	"net/http"
	"strings"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

// EmotionsService scores the emotional tone of text.
type EmotionsService struct {
	client *Client
}

type EmotionRequest struct {
	Text    string         `json:"text"`
	Context map[string]any `json:"context,omitempty"`
}

// EmotionScore is one labeled emotion with its confidence.
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// EmotionAnalysis ranks the detected emotions, strongest first.
type EmotionAnalysis struct {
	Dominant string         `json:"dominant"`
	Emotions []EmotionScore `json:"emotions"`
}

// Analyze scores the emotional tone of the given text.
func (s *EmotionsService) Analyze(ctx context.Context, req *EmotionRequest) (*EmotionAnalysis, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, core.NewInvalidRequestErrorWithParam("text must not be empty", "text")
	}

	var analysis EmotionAnalysis
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/emotions", req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}
