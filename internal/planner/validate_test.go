package planner

import (
	"math"
	"testing"
)

func TestParseNeeds_KeepsValidDropsInvalid(t *testing.T) {
	text := `{
		"locations": [
			{"name": "Zone A", "lat": 1.0, "lon": 2.0, "needs": {"water": 0, "food": 2000, "medical": 0}},
			{"name": "Broken", "lon": 2.0, "needs": {"water": 10, "food": 10, "medical": 10}}
		]
	}`

	needs, degraded := ParseNeeds(text)
	if degraded {
		t.Fatal("expected no fallback substitution")
	}
	if len(needs.Locations) != 1 {
		t.Fatalf("expected 1 surviving location, got %d", len(needs.Locations))
	}
	loc := needs.Locations[0]
	if loc.Name != "Zone A" || loc.Lat != 1.0 || loc.Lon != 2.0 || loc.Needs.Food != 2000 {
		t.Fatalf("valid location mutated: %+v", loc)
	}
}

func TestParseNeeds_AllInvalidSubstitutesFallback(t *testing.T) {
	text := `{"locations": [{"name": "", "lat": 1, "lon": 2, "needs": {}}, {"name": "NoCoords", "needs": {}}]}`

	needs, degraded := ParseNeeds(text)
	if !degraded {
		t.Fatal("expected fallback substitution")
	}
	if len(needs.Locations) != 2 {
		t.Fatalf("fallback must have exactly 2 locations, got %d", len(needs.Locations))
	}
	if needs.Locations[0].Name != "Primary Zone" || needs.Locations[1].Name != "Secondary Zone" {
		t.Fatalf("unexpected fallback names: %q, %q", needs.Locations[0].Name, needs.Locations[1].Name)
	}
}

func TestParseNeeds_MalformedJSONSubstitutesFallback(t *testing.T) {
	for _, text := range []string{"not json", "", "[]", `{"locations": "nope"}`, `{"other": 1}`} {
		needs, degraded := ParseNeeds(text)
		if !degraded {
			t.Fatalf("expected fallback for %q", text)
		}
		if len(needs.Locations) != 2 {
			t.Fatalf("expected 2 fallback locations for %q, got %d", text, len(needs.Locations))
		}
	}
}

func TestParseNeeds_ElementTypeMismatchIsDroppedNotFatal(t *testing.T) {
	text := `{"locations": [
		{"name": "Zone A", "lat": "not-a-number", "lon": 2.0, "needs": {}},
		{"name": "Zone B", "lat": 3.0, "lon": 4.0, "needs": {"water": 100}}
	]}`

	needs, degraded := ParseNeeds(text)
	if degraded {
		t.Fatal("one valid entry should avoid the fallback")
	}
	if len(needs.Locations) != 1 || needs.Locations[0].Name != "Zone B" {
		t.Fatalf("expected only Zone B, got %+v", needs.Locations)
	}
}

func TestParseNeeds_ClampsNegativeQuantities(t *testing.T) {
	text := `{"locations": [{"name": "Zone A", "lat": 1, "lon": 2, "needs": {"water": -50, "food": 10, "medical": -1}}]}`

	needs, degraded := ParseNeeds(text)
	if degraded {
		t.Fatal("unexpected fallback")
	}
	got := needs.Locations[0].Needs
	if got.Water != 0 || got.Food != 10 || got.Medical != 0 {
		t.Fatalf("expected clamped needs, got %+v", got)
	}
}

func TestValidateNeeds_NilAndNonFinite(t *testing.T) {
	if needs, degraded := ValidateNeeds(nil); !degraded || len(needs.Locations) != 2 {
		t.Fatal("nil candidate must substitute the fallback")
	}

	candidate := &StructuredNeeds{Locations: []LocationNeed{
		{Name: "NaN Zone", Lat: math.NaN(), Lon: 0, Needs: NeedQuantities{}},
		{Name: "Inf Zone", Lat: 0, Lon: math.Inf(1), Needs: NeedQuantities{}},
		{Name: "Good Zone", Lat: 10, Lon: 20, Needs: NeedQuantities{Water: 1}},
	}}
	needs, degraded := ValidateNeeds(candidate)
	if degraded {
		t.Fatal("unexpected fallback with one valid entry")
	}
	if len(needs.Locations) != 1 || needs.Locations[0].Name != "Good Zone" {
		t.Fatalf("expected only Good Zone, got %+v", needs.Locations)
	}
}

func TestFallbackNeeds_ReturnsFreshCopies(t *testing.T) {
	a := FallbackNeeds()
	a.Locations[0].Name = "mutated"
	b := FallbackNeeds()
	if b.Locations[0].Name != "Primary Zone" {
		t.Fatal("fallback must not share state between calls")
	}
}
