package session

import (
	"strings"

	"github.com/Akshatoff/Alloc8/internal/planner"
)

// parseQuestions extracts the dynamic question list through the shared
// parse-or-fallback utility. Blank entries are dropped; an empty but
// well-formed array is accepted as-is and means the Q&A loop is skipped
// entirely.
func parseQuestions(text string) ([]string, bool) {
	return planner.ParseWithFallback(text, func(qs *[]string) error {
		cleaned := make([]string, 0, len(*qs))
		for _, q := range *qs {
			if trimmed := strings.TrimSpace(q); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		*qs = cleaned
		return nil
	}, fallbackQuestions)
}
