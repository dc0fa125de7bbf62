package sentra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

func TestDetection_PostsToKindEndpoint(t *testing.T) {
	t.Parallel()

	type received struct {
		method string
		path   string
		body   DetectionRequest
	}
	recvCh := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body DetectionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		recvCh <- received{method: r.Method, path: r.URL.Path, body: body}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detected":true,"categories":["bullying"],"severity":"medium","risk_score":0.62,"explanation":"repeated insults"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("sk-test"))

	result, err := client.Detection.Bullying(context.Background(), &DetectionRequest{
		Text:    "you are worthless",
		Context: map[string]any{"speaker_age": 13},
	})
	if err != nil {
		t.Fatalf("Bullying error: %v", err)
	}
	if !result.Detected || result.Severity != "medium" || result.RiskScore != 0.62 {
		t.Fatalf("result=%+v", result)
	}

	got := <-recvCh
	if got.method != http.MethodPost || got.path != "/v1/detect/bullying" {
		t.Fatalf("request=%s %s", got.method, got.path)
	}
	if got.body.Text != "you are worthless" {
		t.Fatalf("body=%+v", got.body)
	}
}

func TestDetection_KindRouting(t *testing.T) {
	t.Parallel()

	pathCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pathCh <- r.URL.Path
		_, _ = w.Write([]byte(`{"detected":false,"severity":"none","risk_score":0}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("sk-test"))
	req := &DetectionRequest{Text: "see you at practice"}

	calls := []struct {
		name string
		call func() (*DetectionResult, error)
		path string
	}{
		{"bullying", func() (*DetectionResult, error) { return client.Detection.Bullying(context.Background(), req) }, "/v1/detect/bullying"},
		{"grooming", func() (*DetectionResult, error) { return client.Detection.Grooming(context.Background(), req) }, "/v1/detect/grooming"},
		{"unsafe", func() (*DetectionResult, error) { return client.Detection.Unsafe(context.Background(), req) }, "/v1/detect/unsafe"},
	}

	for _, tt := range calls {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.call(); err != nil {
				t.Fatalf("%s error: %v", tt.name, err)
			}
			if got := <-pathCh; got != tt.path {
				t.Fatalf("path=%q, want %q", got, tt.path)
			}
		})
	}
}

func TestDetection_EmptyTextFailsWithoutRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("sk-test"))

	_, err := client.Detection.Grooming(context.Background(), &DetectionRequest{Text: "   "})
	var apiErr *core.Error
	if !errors.As(err, &apiErr) || apiErr.Type != core.ErrInvalidRequest || apiErr.Param != "text" {
		t.Fatalf("error=%v", err)
	}

	if _, err := client.Detection.Unsafe(context.Background(), nil); err == nil {
		t.Fatalf("nil request should fail")
	}

	if got := hits.Load(); got != 0 {
		t.Fatalf("server hit %d times, validation must be local", got)
	}
}

func TestEmotions_Analyze(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/emotions" {
			t.Errorf("request=%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"dominant":"fear","emotions":[{"label":"fear","score":0.71},{"label":"sadness","score":0.2}]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("sk-test"))

	analysis, err := client.Emotions.Analyze(context.Background(), &EmotionRequest{Text: "I don't want to go back there"})
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if analysis.Dominant != "fear" || len(analysis.Emotions) != 2 || analysis.Emotions[0].Score != 0.71 {
		t.Fatalf("analysis=%+v", analysis)
	}
}
