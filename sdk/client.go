// Package sentra provides the Sentra SDK for Go.
//
// The SDK covers the synchronous analysis surface (Detection, Emotions,
// Plans, Reports, Usage) and the real-time streaming session (Stream).
// Synchronous calls are authenticated JSON requests with retry/backoff;
// streaming sessions run over a single long-lived WebSocket connection.
package sentra

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL        = "https://api.sentra.ai"
	defaultMaxRetries     = 2
	defaultRetryBackoff   = 500 * time.Millisecond
	defaultConnectTimeout = 15 * time.Second
)

// Client is the main entry point for the SDK.
type Client struct {
	Detection *DetectionService
	Emotions  *EmotionsService
	Plans     *PlansService
	Reports   *ReportsService
	Usage     *UsageService
	Stream    *StreamService

	// Internal
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	logger         *slog.Logger
	tracer         trace.Tracer
	maxRetries     int
	retryBackoff   time.Duration
	connectTimeout time.Duration
}

// NewClient creates a new client.
// The API key is read from SENTRA_API_KEY unless set via WithAPIKey.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        defaultBaseURL,
		apiKey:         os.Getenv("SENTRA_API_KEY"),
		logger:         slog.Default(),
		maxRetries:     defaultMaxRetries,
		retryBackoff:   defaultRetryBackoff,
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}

	c.Detection = &DetectionService{client: c}
	c.Emotions = &EmotionsService{client: c}
	c.Plans = &PlansService{client: c}
	c.Reports = &ReportsService{client: c}
	c.Usage = &UsageService{client: c}
	c.Stream = &StreamService{client: c}
	return c
}

// Int returns a pointer to v, for optional request fields where absence and
// zero mean different things.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
