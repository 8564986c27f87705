package logging

import "testing"

func TestNew_LevelParsing(t *testing.T) {
	cases := []string{"debug", "info", "warn", "error", "bogus", ""}
	for _, level := range cases {
		if logger := New(level, "json"); logger == nil || logger.Logger == nil {
			t.Fatalf("expected logger for level %q", level)
		}
	}
}

func TestNew_TextFormat(t *testing.T) {
	if logger := New("info", "text"); logger == nil {
		t.Fatal("expected text logger")
	}
}

func TestWith_ReturnsWrappedLogger(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected derived logger")
	}
}
