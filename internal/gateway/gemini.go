package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Akshatoff/Alloc8/internal/observability/metrics"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

const (
	defaultEndpoint    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModelID     = "gemini-2.5-flash"
	defaultMaxAttempts = 5
	defaultBaseDelay   = 500 * time.Millisecond
)

// GeminiConfig describes how to reach the generative language endpoint.
type GeminiConfig struct {
	APIKey      string
	ModelID     string
	Endpoint    string
	MaxAttempts int
	BaseDelay   time.Duration
	// DisableJitter makes backoff deterministic. Tests only.
	DisableJitter bool
	HTTPClient    *http.Client
}

// GeminiClient calls the generative language REST endpoint directly. It owns
// the retry policy: transport failures, non-2xx statuses, and responses
// missing the answer text are retried with jittered exponential backoff until
// the attempt budget runs out.
type GeminiClient struct {
	apiKey        string
	modelID       string
	endpoint      string
	maxAttempts   int
	baseDelay     time.Duration
	disableJitter bool
	http          *http.Client
	logger        *logging.Logger
	metrics       *metrics.GatewayMetrics
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient validates the configuration and returns a ready client.
func NewGeminiClient(cfg GeminiConfig, logger *logging.Logger, m *metrics.GatewayMetrics) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: gemini api key is required")
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = defaultModelID
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &GeminiClient{
		apiKey:        cfg.APIKey,
		modelID:       cfg.ModelID,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		maxAttempts:   cfg.MaxAttempts,
		baseDelay:     cfg.BaseDelay,
		disableJitter: cfg.DisableJitter,
		http:          cfg.HTTPClient,
		logger:        logger,
		metrics:       m,
	}, nil
}

// Wire types for the generateContent endpoint.
type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wireTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type wireGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type wireRequest struct {
	Contents          []wireContent         `json:"contents"`
	SystemInstruction *wireContent          `json:"systemInstruction,omitempty"`
	Tools             []wireTool            `json:"tools,omitempty"`
	GenerationConfig  *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireWeb struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type wireAttribution struct {
	Web *wireWeb `json:"web"`
}

type wireGroundingMetadata struct {
	GroundingAttributions []wireAttribution `json:"groundingAttributions"`
}

type wireCandidate struct {
	Content           *wireContent           `json:"content"`
	GroundingMetadata *wireGroundingMetadata `json:"groundingMetadata"`
}

type wireResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

// Generate performs the call with retries. The returned error is a
// *TerminalError once the attempt budget is exhausted; callers should treat
// anything else (empty prompt, context cancellation) as non-retryable input
// or lifecycle errors.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	payload := wireRequest{
		Contents: []wireContent{{Parts: []wirePart{{Text: req.Prompt}}}},
	}
	if strings.TrimSpace(req.System) != "" {
		payload.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}
	if req.Grounded {
		payload.Tools = []wireTool{{}}
	}
	if req.JSONOnly {
		payload.GenerationConfig = &wireGenerationConfig{ResponseMIMEType: "application/json"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: failed to encode request: %w", err)
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveCall(req.Grounded, time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		result, callErr := c.doOnce(ctx, body)
		if callErr == nil {
			c.metrics.ObserveAttempt("success")
			return result, nil
		}
		lastErr = callErr
		c.metrics.ObserveAttempt("retry")
		c.logger.Warn("gateway: gemini call failed",
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"error", callErr.Error(),
		)

		if attempt == c.maxAttempts-1 {
			break
		}
		if err := c.wait(ctx, attempt); err != nil {
			c.metrics.ObserveAttempt("cancelled")
			return Result{}, err
		}
	}

	c.metrics.ObserveAttempt("terminal")
	return Result{}, &TerminalError{Attempts: c.maxAttempts, Err: lastErr}
}

// wait sleeps for baseDelay * 2^(attempt+1) plus jitter, honoring cancellation.
func (c *GeminiClient) wait(ctx context.Context, attempt int) error {
	delay := c.baseDelay * (1 << (attempt + 1))
	if !c.disableJitter {
		delay += time.Duration(rand.Int63n(int64(c.baseDelay)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("gateway: call cancelled during backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (c *GeminiClient) doOnce(ctx context.Context, body []byte) (Result, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.modelID, url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: request build failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: read response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("gateway: api request failed with status %d", resp.StatusCode)
	}

	var decoded wireResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return Result{}, fmt.Errorf("gateway: decode response failed: %w", err)
	}

	if len(decoded.Candidates) == 0 {
		return Result{}, errors.New("gateway: response has no candidates")
	}
	candidate := decoded.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0].Text == "" {
		return Result{}, errors.New("gateway: response missing answer text")
	}

	result := Result{Text: candidate.Content.Parts[0].Text}
	if candidate.GroundingMetadata != nil {
		for _, attr := range candidate.GroundingMetadata.GroundingAttributions {
			// Attributions missing either field are dropped, not fatal.
			if attr.Web == nil || attr.Web.URI == "" || attr.Web.Title == "" {
				continue
			}
			result.Sources = append(result.Sources, Source{URI: attr.Web.URI, Title: attr.Web.Title})
		}
	}
	return result, nil
}
