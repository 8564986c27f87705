package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenAIClient implements Generator using Google's official SDK. It cannot
// surface web grounding sources, so it serves as the ungrounded secondary
// behind FallbackGenerator rather than the primary path.
type GenAIClient struct {
	client  *genai.Client
	modelID string
}

var _ Generator = (*GenAIClient)(nil)

// NewGenAIClient creates an SDK-backed generator.
func NewGenAIClient(ctx context.Context, apiKey, modelID string) (*GenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gateway: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultModelID
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create genai client: %w", err)
	}

	return &GenAIClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Generate sends a single completion request through the SDK.
func (c *GenAIClient) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	model := c.client.GenerativeModel(c.modelID)
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.JSONOnly {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: genai completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Result{}, errors.New("gateway: genai returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Result{}, errors.New("gateway: genai returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	answer := strings.TrimSpace(text.String())
	if answer == "" {
		return Result{}, errors.New("gateway: genai returned no text parts")
	}
	return Result{Text: answer}, nil
}

// Close releases resources held by the SDK client.
func (c *GenAIClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
