package gateway

import (
	"context"
	"errors"
	"testing"
)

type stubGenerator struct {
	result Result
	err    error
	calls  int
}

func (s *stubGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestFallbackGenerator_PrimarySucceeds(t *testing.T) {
	primary := &stubGenerator{result: Result{Text: "primary"}}
	secondary := &stubGenerator{result: Result{Text: "secondary"}}
	g := NewFallbackGenerator(primary, secondary, nil)

	result, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "primary" {
		t.Fatalf("expected primary result, got %q", result.Text)
	}
	if secondary.calls != 0 {
		t.Fatal("secondary must not be called when primary succeeds")
	}
}

func TestFallbackGenerator_SecondaryAfterTerminalFailure(t *testing.T) {
	primary := &stubGenerator{err: &TerminalError{Attempts: 5, Err: errors.New("status 503")}}
	secondary := &stubGenerator{result: Result{Text: "rescued"}}
	g := NewFallbackGenerator(primary, secondary, nil)

	result, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "rescued" {
		t.Fatalf("expected secondary result, got %q", result.Text)
	}
}

func TestFallbackGenerator_InputErrorsDoNotFallBack(t *testing.T) {
	primary := &stubGenerator{err: ErrEmptyPrompt}
	secondary := &stubGenerator{result: Result{Text: "rescued"}}
	g := NewFallbackGenerator(primary, secondary, nil)

	_, err := g.Generate(context.Background(), Request{})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected input error passthrough, got %v", err)
	}
	if secondary.calls != 0 {
		t.Fatal("secondary must not run on input errors")
	}
}

func TestFallbackGenerator_NoSecondaryReturnsPrimaryError(t *testing.T) {
	terminal := &TerminalError{Attempts: 5, Err: errors.New("down")}
	primary := &stubGenerator{err: terminal}
	g := NewFallbackGenerator(primary, nil, nil)

	_, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	if !IsTerminal(err) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestFallbackGenerator_BothFailReturnsSecondaryError(t *testing.T) {
	primary := &stubGenerator{err: &TerminalError{Attempts: 5, Err: errors.New("down")}}
	secondaryErr := errors.New("also down")
	secondary := &stubGenerator{err: secondaryErr}
	g := NewFallbackGenerator(primary, secondary, nil)

	_, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, secondaryErr) {
		t.Fatalf("expected secondary error, got %v", err)
	}
}
