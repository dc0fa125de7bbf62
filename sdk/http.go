package sentra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentra-ai/sentra-go/pkg/core"
)

// newDefaultHTTPClient configures sane transport-level timeouts while keeping
// the overall request lifetime controlled by context deadlines.
//
// We intentionally do not set http.Client.Timeout because callers also share
// this client with long-lived requests; use per-request context deadlines.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}

type apiErrorResponse struct {
	Type  string     `json:"type"`
	Error core.Error `json:"error"`
}

func (c *Client) apiURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// doJSON issues an authenticated JSON request with retry and backoff on
// transient failures. Transport errors retry unconditionally up to the
// configured limit; API errors retry only when their type is retryable.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	ctx, span := c.startSpan(ctx, method, path)
	err := c.doJSONRetry(ctx, method, path, body, out)
	endSpan(span, err)
	return err
}

func (c *Client) doJSONRetry(ctx context.Context, method, path string, body any, out any) error {
	attempt := 0
	backoff := c.retryBackoff

	for {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.addAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if shouldRetry(ctx, attempt, c.maxRetries) {
				time.Sleep(backoff)
				backoff = nextBackoff(backoff)
				attempt++
				continue
			}
			return &TransportError{Op: method, URL: c.apiURL(path), Err: err}
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			apiErr := parseAPIError(resp.StatusCode, resp.Header, respBody)
			if shouldRetryAPIError(ctx, attempt, c.maxRetries, apiErr) {
				c.logger.Debug("retrying request", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt)
				time.Sleep(backoff)
				backoff = nextBackoff(backoff)
				attempt++
				continue
			}
			return apiErr
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}

		return nil
	}
}

func (c *Client) doGET(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doDELETE(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// parseAPIError prefers the server's structured error envelope and falls
// back to a typed error derived from the HTTP status code.
func parseAPIError(status int, header http.Header, body []byte) error {
	var resp apiErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Type != "" {
		if resp.Error.RequestID == "" {
			resp.Error.RequestID = header.Get("X-Request-ID")
		}
		return &resp.Error
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = fmt.Sprintf("request failed (%d)", status)
	}

	switch status {
	case http.StatusBadRequest:
		return core.NewInvalidRequestError(message)
	case http.StatusUnauthorized:
		return core.NewAuthenticationError(message)
	case http.StatusPaymentRequired:
		return core.NewQuotaError(message)
	case http.StatusForbidden:
		return core.NewPermissionError(message)
	case http.StatusNotFound:
		return core.NewNotFoundError(message)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if v := header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				retryAfter = n
			}
		}
		return core.NewRateLimitError(message, retryAfter)
	case http.StatusServiceUnavailable, 529:
		return core.NewOverloadedError(message)
	default:
		return core.NewAPIError(message)
	}
}

func shouldRetryAPIError(ctx context.Context, attempt, maxRetries int, err error) bool {
	if !shouldRetry(ctx, attempt, maxRetries) {
		return false
	}
	if apiErr, ok := err.(*core.Error); ok {
		return apiErr.IsRetryable()
	}
	return false
}

func shouldRetry(ctx context.Context, attempt, maxRetries int) bool {
	if ctx.Err() != nil {
		return false
	}
	return attempt < maxRetries
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next == 0 {
		return time.Second
	}
	return next
}

func (c *Client) startSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, nil
	}
	return c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
