package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Akshatoff/Alloc8/internal/observability/metrics"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// Config describes how to reach the route optimization backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client sends plan requests to the optimization backend. Calls are never
// retried: the planning computation is expensive, so failures surface
// immediately and the user decides whether to try again.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
	metrics *metrics.SessionMetrics
	tracer  trace.Tracer
}

// NewClient validates the configuration and returns a ready-to-use client.
func NewClient(cfg Config, logger *logging.Logger, m *metrics.SessionMetrics) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("planner: base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("alloc8.internal.planner"),
	}, nil
}

// planProbe checks that the response carries the required top-level fields
// before the full decode.
type planProbe struct {
	Summary   *json.RawMessage `json:"summary"`
	Routes    *json.RawMessage `json:"routes"`
	Locations *json.RawMessage `json:"locations"`
	Depot     *json.RawMessage `json:"depot"`
}

// GeneratePlan posts the request and validates the response shape.
func (c *Client) GeneratePlan(ctx context.Context, req PlanRequest) (*Plan, error) {
	ctx, span := c.tracer.Start(ctx, "planner.generate_plan")
	defer span.End()

	if req.Strategy == "" {
		return nil, errors.New("planner: strategy is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("planner: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-plan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("planner: request build failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObservePlanRequest("transport_error")
		return nil, fmt.Errorf("planner: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObservePlanRequest("read_error")
		return nil, fmt.Errorf("planner: read response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObservePlanRequest("http_error")
		detail := strings.TrimSpace(string(data))
		c.logger.Error("planner: backend rejected plan request",
			"status", resp.StatusCode,
			"detail", detail,
		)
		return nil, fmt.Errorf("planner: backend error %d: %s", resp.StatusCode, detail)
	}

	var probe planProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		c.metrics.ObservePlanRequest("decode_error")
		return nil, fmt.Errorf("planner: decode response failed: %w", err)
	}
	if probe.Summary == nil || probe.Routes == nil || probe.Locations == nil || probe.Depot == nil {
		c.metrics.ObservePlanRequest("malformed")
		return nil, errors.New("planner: response missing summary, routes, locations, or depot")
	}

	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		c.metrics.ObservePlanRequest("decode_error")
		return nil, fmt.Errorf("planner: decode plan failed: %w", err)
	}

	c.metrics.ObservePlanRequest("success")
	return &plan, nil
}
