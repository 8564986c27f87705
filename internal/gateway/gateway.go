package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Source is a grounding attribution returned alongside generated text.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Request describes a single generative call.
type Request struct {
	// System is an optional system instruction; empty means none.
	System string
	// Prompt is the user content. Required.
	Prompt string
	// Grounded enables web-search grounding; the response may then carry Sources.
	Grounded bool
	// JSONOnly instructs the model to answer with machine-parseable JSON.
	// The gateway never parses the answer; that is the caller's job.
	JSONOnly bool
}

// Result carries the answer text and any grounding sources.
type Result struct {
	Text    string
	Sources []Source
}

// Generator produces completions from a generative text service.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// ErrEmptyPrompt indicates the caller supplied no user content.
var ErrEmptyPrompt = errors.New("gateway: prompt is required")

// TerminalError is returned once the retry budget is exhausted, carrying the
// last underlying failure.
type TerminalError struct {
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("gateway: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err marks an exhausted gateway call.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
