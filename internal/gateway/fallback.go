package gateway

import (
	"context"

	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// FallbackGenerator wraps a primary generator with a secondary provider.
// If the primary fails terminally, it retries once with the secondary.
type FallbackGenerator struct {
	primary   Generator
	secondary Generator
	logger    *logging.Logger
}

var _ Generator = (*FallbackGenerator)(nil)

// NewFallbackGenerator creates a fallback-enabled generator. If secondary is
// nil, only the primary provider is used.
func NewFallbackGenerator(primary, secondary Generator, logger *logging.Logger) *FallbackGenerator {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Generate tries the primary provider first. Input errors are returned as-is;
// terminal failures trigger the secondary when configured. A grounded request
// served by the secondary returns no sources, which callers must tolerate.
func (g *FallbackGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	result, err := g.primary.Generate(ctx, req)
	if err == nil {
		return result, nil
	}
	if !IsTerminal(err) || g.secondary == nil {
		return Result{}, err
	}

	g.logger.Warn("gateway: primary provider exhausted, trying secondary",
		"error", err.Error(),
		"grounded", req.Grounded,
	)

	secondResult, secondErr := g.secondary.Generate(ctx, req)
	if secondErr != nil {
		g.logger.Error("gateway: secondary provider also failed",
			"primary_error", err.Error(),
			"secondary_error", secondErr.Error(),
		)
		return Result{}, secondErr
	}

	g.logger.Info("gateway: secondary provider succeeded after primary failure")
	return secondResult, nil
}
