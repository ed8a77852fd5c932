package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/core"
)

// answer wraps text the way generateContent returns it.
func answer(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := New(srv.URL, "test-key", "test-model")
	c.HTTPClient = srv.Client()
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.randInt63n = func(n int64) int64 { return 0 }
	return c
}

func TestGenerate_SendsSchemaAndParsesRecords(t *testing.T) {
	var gotBody []byte
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, answer(`[{"name":"Ana","age":31},{"name":"Bo","age":null}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	records, err := c.Generate(context.Background(), core.GenerationRequest{
		Headers:     []string{"name", "age"},
		Instruction: "two people",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)

	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "application/json", body.Get("generationConfig.responseMimeType").String())
	assert.Equal(t, "ARRAY", body.Get("generationConfig.responseSchema.type").String())
	assert.Equal(t, "STRING", body.Get("generationConfig.responseSchema.items.properties.name.type").String())
	assert.Contains(t, body.Get("contents.0.parts.0.text").String(), "two people")

	require.Len(t, records, 2)
	assert.Equal(t, core.Record{"name": "Ana", "age": "31"}, records[0])
	assert.Equal(t, core.Record{"name": "Bo", "age": ""}, records[1])
}

func TestGenerate_RemapsTrimmedHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, answer(`[{"City":"Lisbon"}]`))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv).Generate(context.Background(), core.GenerationRequest{
		Headers:     []string{" City "},
		Instruction: "a city",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Lisbon", records[0][" City "])
}

func TestGenerate_StripsMarkdownFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, answer("```json\n[{\"a\":\"1\"}]\n```"))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv).Generate(context.Background(), core.GenerationRequest{
		Headers:     []string{"a"},
		Instruction: "one row",
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{"a": "1"}}, records)
}

func TestGenerate_NonArrayIsGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, answer(`{"a":"1"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), core.GenerationRequest{
		Headers:     []string{"a"},
		Instruction: "one row",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGeneration))
	assert.Equal(t, "GEN005", core.MapError(err).Code)
}

func TestGenerate_PreconditionSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Generate(context.Background(), core.GenerationRequest{Headers: []string{"a"}, Instruction: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGeneration))

	_, err = c.Generate(context.Background(), core.GenerationRequest{Instruction: "rows"})
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGenerate_RetriesTransientStatusThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			io.WriteString(w, answer(`[{"a":"ok"}]`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	records, err := c.Generate(context.Background(), core.GenerationRequest{Headers: []string{"a"}, Instruction: "x"})
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{"a": "ok"}}, records)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, slept, 2)
	assert.Equal(t, time.Second, slept[1], "Retry-After should be honoured")
}

func TestGenerate_StopsAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.maxAttempts = 2

	_, err := c.Generate(context.Background(), core.GenerationRequest{Headers: []string{"a"}, Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, errors.Is(err, core.ErrGeneration))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "backend exploded", apiErr.Message)
	assert.Equal(t, "INTERNAL", apiErr.Status)
}

func TestGenerate_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"API key not valid"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), core.GenerationRequest{Headers: []string{"a"}, Instruction: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerate_BlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), core.GenerationRequest{Headers: []string{"a"}, Instruction: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGeneration))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerate_CanceledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, srv)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Generate(ctx, core.GenerationRequest{Headers: []string{"a"}, Instruction: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildSchema_TrimsAndSkipsBlankHeaders(t *testing.T) {
	s := buildSchema([]string{" a ", "", "b", "a"})
	require.NotNil(t, s.Items)
	assert.Equal(t, []string{"a", "b"}, s.Items.PropertyOrdering)
	assert.Len(t, s.Items.Properties, 2)
	assert.Equal(t, "Value for the column a", s.Items.Properties["a"].Description)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`[1]`, `[1]`},
		{"```json\n[1]\n```", `[1]`},
		{"```\n[1]```", `[1]`},
		{"  [1]  ", `[1]`},
		{"```", ``},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), "input %q", tt.in)
	}
}

func TestParseRetryAfter(t *testing.T) {
	c := New("", "k", "")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	d, ok := c.parseRetryAfter("3")
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	d, ok = c.parseRetryAfter(now.Add(5 * time.Second).Format(http.TimeFormat))
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = c.parseRetryAfter("soon")
	assert.False(t, ok)
	_, ok = c.parseRetryAfter("0")
	assert.False(t, ok)
}

func TestNewFromConfig(t *testing.T) {
	assert.Nil(t, NewFromConfig(&config.GenerationConfig{}))

	c := NewFromConfig(&config.GenerationConfig{
		APIKey:      "k",
		BaseURL:     "https://example.test/",
		Model:       "m",
		MaxAttempts: 5,
	})
	require.NotNil(t, c)
	assert.Equal(t, "https://example.test", c.BaseURL)
	assert.Equal(t, "m", c.Model)
	assert.Equal(t, 5, c.maxAttempts)
}
