package planner

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// FallbackNeeds returns the canonical two-location substitute used whenever a
// needs candidate cannot be salvaged. Callers get a fresh copy each time.
func FallbackNeeds() StructuredNeeds {
	return StructuredNeeds{
		Locations: []LocationNeed{
			{
				Name:  "Primary Zone",
				Lat:   28.5355,
				Lon:   77.391,
				Needs: NeedQuantities{Water: 5000, Food: 10000, Medical: 2000},
			},
			{
				Name:  "Secondary Zone",
				Lat:   28.55,
				Lon:   77.4,
				Needs: NeedQuantities{Water: 3000, Food: 6000, Medical: 1000},
			},
		},
	}
}

// ParseWithFallback decodes trimmed model output into T and lets validate
// normalize it in place. Any decode or validation failure substitutes the
// fallback; the boolean reports whether that happened. Both the dynamic
// question list and the needs extraction run through this.
func ParseWithFallback[T any](text string, validate func(*T) error, fallback func() T) (T, bool) {
	var value T
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &value); err != nil {
		return fallback(), true
	}
	if validate != nil {
		if err := validate(&value); err != nil {
			return fallback(), true
		}
	}
	return value, false
}

// locationCandidate mirrors LocationNeed with optional fields so that absent
// coordinates can be told apart from zero values.
type locationCandidate struct {
	Name  string          `json:"name"`
	Lat   *float64        `json:"lat"`
	Lon   *float64        `json:"lon"`
	Needs *NeedQuantities `json:"needs"`
}

type needsCandidate struct {
	Locations []json.RawMessage `json:"locations"`
}

// ParseNeeds decodes and validates a structured-needs payload. Individual
// malformed locations are dropped; only an unusable whole candidate triggers
// the fallback. The second return value reports whether the fallback was
// substituted.
func ParseNeeds(text string) (StructuredNeeds, bool) {
	candidate, degraded := ParseWithFallback(text, func(c *needsCandidate) error {
		if c.Locations == nil {
			return errors.New("planner: candidate has no locations field")
		}
		return nil
	}, func() needsCandidate { return needsCandidate{} })
	if degraded {
		return FallbackNeeds(), true
	}

	valid := make([]LocationNeed, 0, len(candidate.Locations))
	for _, raw := range candidate.Locations {
		var loc locationCandidate
		if err := json.Unmarshal(raw, &loc); err != nil {
			continue
		}
		if entry, ok := normalizeLocation(loc); ok {
			valid = append(valid, entry)
		}
	}

	if len(valid) == 0 {
		return FallbackNeeds(), true
	}
	return StructuredNeeds{Locations: valid}, false
}

// ValidateNeeds applies the same filter rules to an already-structured
// candidate, such as one loaded from a persisted record.
func ValidateNeeds(candidate *StructuredNeeds) (StructuredNeeds, bool) {
	if candidate == nil || candidate.Locations == nil {
		return FallbackNeeds(), true
	}

	valid := make([]LocationNeed, 0, len(candidate.Locations))
	for _, loc := range candidate.Locations {
		lat, lon, needs := loc.Lat, loc.Lon, loc.Needs
		entry, ok := normalizeLocation(locationCandidate{
			Name:  loc.Name,
			Lat:   &lat,
			Lon:   &lon,
			Needs: &needs,
		})
		if ok {
			valid = append(valid, entry)
		}
	}

	if len(valid) == 0 {
		return FallbackNeeds(), true
	}
	return StructuredNeeds{Locations: valid}, false
}

func normalizeLocation(loc locationCandidate) (LocationNeed, bool) {
	if strings.TrimSpace(loc.Name) == "" || loc.Lat == nil || loc.Lon == nil || loc.Needs == nil {
		return LocationNeed{}, false
	}
	if !isFinite(*loc.Lat) || !isFinite(*loc.Lon) {
		return LocationNeed{}, false
	}
	return LocationNeed{
		Name: strings.TrimSpace(loc.Name),
		Lat:  *loc.Lat,
		Lon:  *loc.Lon,
		Needs: NeedQuantities{
			Water:   clampNonNegative(loc.Needs.Water),
			Food:    clampNonNegative(loc.Needs.Food),
			Medical: clampNonNegative(loc.Needs.Medical),
		},
	}, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampNonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
