package sentra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

func TestDoJSON_RetriesOnRetryableStatus(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"plan":"family","analyzed_requests":3}`))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("sk-test"),
		WithRetries(2),
		WithRetryBackoff(time.Millisecond),
	)

	usage, err := client.Usage.Get(context.Background())
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if usage.Plan != "family" || usage.AnalyzedRequests != 3 {
		t.Fatalf("usage=%+v", usage)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts=%d, want 2", got)
	}
}

func TestDoJSON_DoesNotRetryInvalidRequest(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"text too long","param":"text"}}`))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("sk-test"),
		WithRetries(3),
		WithRetryBackoff(time.Millisecond),
	)

	_, err := client.Detection.Bullying(context.Background(), &DetectionRequest{Text: "hello"})
	var apiErr *core.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error=%v, want *core.Error", err)
	}
	if apiErr.Type != core.ErrInvalidRequest || apiErr.Message != "text too long" || apiErr.Param != "text" {
		t.Fatalf("error=%+v", apiErr)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("attempts=%d, want 1 (invalid_request must not retry)", got)
	}
}

func TestDoJSON_SetsAuthAndRequestIDHeaders(t *testing.T) {
	t.Parallel()

	headersCh := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headersCh <- r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("sk-header-test"))

	if _, err := client.Usage.Get(context.Background()); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	headers := <-headersCh
	if got := headers.Get("Authorization"); got != "Bearer sk-header-test" {
		t.Fatalf("Authorization=%q", got)
	}
	if headers.Get("X-Request-ID") == "" {
		t.Fatalf("X-Request-ID not set")
	}
}

func TestDoJSON_TransportErrorWraps(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := NewClient(WithBaseURL(serverURL), WithAPIKey("sk-test"), WithRetries(0))

	_, err := client.Usage.Get(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error=%v, want *TransportError", err)
	}
	if transportErr.Op != http.MethodGet {
		t.Fatalf("Op=%q", transportErr.Op)
	}
}

func TestParseAPIError_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		header   http.Header
		wantType core.ErrorType
	}{
		{"bad request", http.StatusBadRequest, nil, core.ErrInvalidRequest},
		{"unauthorized", http.StatusUnauthorized, nil, core.ErrAuthentication},
		{"payment required", http.StatusPaymentRequired, nil, core.ErrQuota},
		{"forbidden", http.StatusForbidden, nil, core.ErrPermission},
		{"not found", http.StatusNotFound, nil, core.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, http.Header{"Retry-After": []string{"7"}}, core.ErrRateLimit},
		{"service unavailable", http.StatusServiceUnavailable, nil, core.ErrOverloaded},
		{"overloaded", 529, nil, core.ErrOverloaded},
		{"internal", http.StatusInternalServerError, nil, core.ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			err := parseAPIError(tt.status, header, []byte("boom"))
			apiErr, ok := err.(*core.Error)
			if !ok {
				t.Fatalf("error=%T", err)
			}
			if apiErr.Type != tt.wantType {
				t.Fatalf("type=%q, want %q", apiErr.Type, tt.wantType)
			}
			if tt.status == http.StatusTooManyRequests {
				if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 7 {
					t.Fatalf("RetryAfter=%v, want 7", apiErr.RetryAfter)
				}
			}
		})
	}
}

func TestParseAPIError_PrefersStructuredEnvelope(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down","retry_after":12}}`)
	header := http.Header{"X-Request-Id": []string{"req_abc"}}

	err := parseAPIError(http.StatusTooManyRequests, header, body)
	apiErr, ok := err.(*core.Error)
	if !ok {
		t.Fatalf("error=%T", err)
	}
	if apiErr.Type != core.ErrRateLimit || apiErr.Message != "slow down" {
		t.Fatalf("error=%+v", apiErr)
	}
	if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 12 {
		t.Fatalf("RetryAfter=%v, want 12", apiErr.RetryAfter)
	}
	if apiErr.RequestID != "req_abc" {
		t.Fatalf("RequestID=%q, want header fallback", apiErr.RequestID)
	}
}

func TestNextBackoff_Doubles(t *testing.T) {
	t.Parallel()

	if got := nextBackoff(500 * time.Millisecond); got != time.Second {
		t.Fatalf("nextBackoff=%v", got)
	}
	if got := nextBackoff(0); got != time.Second {
		t.Fatalf("nextBackoff(0)=%v", got)
	}
}
