// Package gemini implements the table editor's data-generation collaborator
// on top of the Gemini generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/logging"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	defaultMaxAttempts = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxBackoff  = 8 * time.Second

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 8 << 20
)

// Client calls Gemini to synthesize table rows. It implements core.Generator.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	sleep       func(context.Context, time.Duration) error
	randInt63n  func(int64) int64
	now         func() time.Time
}

var _ core.Generator = (*Client)(nil)

// New creates a client for the given endpoint, credential and model.
// Blank baseURL or model fall back to the public defaults.
func New(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Model:       model,
		HTTPClient:  &http.Client{},
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		sleep:       sleepContext,
		randInt63n:  rand.Int63n,
		now:         time.Now,
	}
}

// NewFromConfig creates a client from the generation settings. It returns
// nil when no credential is configured, which disables generation.
func NewFromConfig(cfg *config.GenerationConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}
	c := New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	if cfg.MaxAttempts > 0 {
		c.maxAttempts = cfg.MaxAttempts
	}
	return c
}

// Generate asks the model for records matching req.Headers. The returned
// records are keyed by the caller's headers exactly as given.
func (c *Client) Generate(ctx context.Context, req core.GenerationRequest) ([]core.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", core.ErrGeneration, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, url.PathEscape(c.Model))
	raw, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.APIKey)
		return httpReq, nil
	})
	if err != nil {
		return nil, err
	}
	if raw.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", core.ErrGeneration, parseAPIError(raw.StatusCode, raw.Body, raw.RetryAfter))
	}

	text, err := responseText(raw.Body)
	if err != nil {
		return nil, err
	}

	records, err := core.RecordsFromJSON(text)
	if err != nil {
		logging.FromContext(ctx).Debug("gemini returned non-array payload", "error", err)
		return nil, fmt.Errorf("%w: gemini: response is not a JSON array of records", core.ErrGeneration)
	}

	return remapRecords(records, req.Headers), nil
}

// responseText extracts the model's answer from a generateContent response.
func responseText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: gemini: malformed response body", core.ErrGeneration)
	}
	doc := gjson.ParseBytes(body)

	if reason := doc.Get("promptFeedback.blockReason"); reason.Exists() {
		return "", fmt.Errorf("%w: gemini: prompt blocked (%s)", core.ErrGeneration, reason.String())
	}

	text := doc.Get("candidates.0.content.parts.0.text")
	if !text.Exists() {
		reason := doc.Get("candidates.0.finishReason").String()
		if reason == "" {
			reason = "no candidates"
		}
		return "", fmt.Errorf("%w: gemini: empty response (%s)", core.ErrGeneration, reason)
	}
	return stripFences(text.String()), nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string ("json") up to the first newline
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// remapRecords rekeys records from the trimmed schema names back to the
// caller's headers. An exact key match is used when present.
func remapRecords(records []core.Record, headers []string) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		mapped := make(core.Record, len(headers))
		for _, h := range headers {
			if v, ok := rec[h]; ok {
				mapped[h] = v
				continue
			}
			if trimmed := strings.TrimSpace(h); trimmed != "" {
				if v, ok := rec[trimmed]; ok {
					mapped[h] = v
				}
			}
		}
		out = append(out, mapped)
	}
	return out
}

type rawResponse struct {
	StatusCode int
	RetryAfter string
	Body       []byte
}

func (c *Client) doWithRetry(ctx context.Context, makeRequest func() (*http.Request, error)) (*rawResponse, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	logger := logging.WithFields(ctx, "model", c.Model)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := makeRequest()
		if err != nil {
			return nil, fmt.Errorf("%w: creating request: %v", core.ErrGeneration, err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if attempt < maxAttempts && isRetryableTransportError(ctx, err) {
				logger.Warn("gemini request failed, retrying", "attempt", attempt, "error", err)
				if err := c.sleepWithBackoff(ctx, attempt, ""); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: gemini request failed after %d attempt(s): %w", core.ErrGeneration, attempt, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			if attempt < maxAttempts && isRetryableTransportError(ctx, readErr) {
				if err := c.sleepWithBackoff(ctx, attempt, ""); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: reading response after %d attempt(s): %w", core.ErrGeneration, attempt, readErr)
		}

		if attempt < maxAttempts && shouldRetryStatus(resp.StatusCode) {
			logger.Warn("gemini returned retryable status", "attempt", attempt, "status", resp.StatusCode)
			if err := c.sleepWithBackoff(ctx, attempt, resp.Header.Get("Retry-After")); err != nil {
				return nil, err
			}
			continue
		}

		return &rawResponse{
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
			Body:       body,
		}, nil
	}

	return nil, fmt.Errorf("%w: gemini request failed after %d attempt(s)", core.ErrGeneration, maxAttempts)
}

// isRetryableTransportError reports whether err is a timeout that another
// attempt may survive. Cancellation of the caller's context never retries.
func isRetryableTransportError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func shouldRetryStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) sleepWithBackoff(ctx context.Context, attempt int, retryAfterHeader string) error {
	if d, ok := c.parseRetryAfter(retryAfterHeader); ok {
		return c.sleep(ctx, d)
	}

	base := c.baseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay <= 0 {
			delay = defaultMaxBackoff
			break
		}
	}

	maxBackoff := c.maxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if delay <= 0 {
		return nil
	}

	// Full jitter in [0, delay).
	if c.randInt63n != nil {
		delay = time.Duration(c.randInt63n(int64(delay)))
	}
	return c.sleep(ctx, delay)
}

func (c *Client) parseRetryAfter(headerValue string) (time.Duration, bool) {
	v := strings.TrimSpace(headerValue)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		if d := t.Sub(now()); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// APIError is a non-200 response from the generation endpoint.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		if e.RetryAfter != "" {
			return fmt.Sprintf("gemini: rate limited; retry after %s", e.RetryAfter)
		}
		return "gemini: rate limited; retry in a moment"
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini: API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: API error %d: %s", e.StatusCode, e.Message)
}

func parseAPIError(statusCode int, body []byte, retryAfter string) error {
	apiErr := &APIError{StatusCode: statusCode, RetryAfter: retryAfter}
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		apiErr.Message = doc.Get("error.message").String()
		apiErr.Status = doc.Get("error.status").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
