package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlanJSON() string {
	return `{
		"summary": {"title": "Plan", "strategy": "fastest", "totalDistanceMeters": 1200, "assignedResources": 2000, "totalTrucks": 1},
		"routes": [{"vehicle_id": 0, "vehicle_type": "road", "distance_meters": 1200, "load": 2000,
			"stops": [{"name": "Zone A", "load": 2000}],
			"segments": [{"mode": "road", "distance_leg": 1200, "geometry": [[77.39, 28.53], [77.4, 28.55]]}]}],
		"locations": [{"name": "Zone A", "lat": 1.0, "lon": 2.0, "needs": {"water": 0, "food": 2000, "medical": 0}}],
		"depot": {"name": "Base", "lat": 20.2444, "lon": 85.8172},
		"source": "OSRM (Real Roads)"
	}`
}

func testRequest() PlanRequest {
	req, _ := BuildRequest(StrategyFastest,
		&StructuredNeeds{Locations: []LocationNeed{{Name: "Zone A", Lat: 1, Lon: 2, Needs: NeedQuantities{Food: 2000}}}},
		map[string]string{"incident_type": "flood"},
		Tuning{VehicleCapacity: 20000, MaxFleetSize: 100, TimeLimitSeconds: 30},
	)
	return req
}

func TestClient_GeneratePlan_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate-plan", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(validPlanJSON()))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	plan, err := client.GeneratePlan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Plan", plan.Summary.Title)
	assert.Len(t, plan.Routes, 1)
	assert.Equal(t, "Base", plan.Depot.Name)

	// Request payload forwarded verbatim, tuning included.
	assert.Equal(t, "fastest", captured["strategy"])
	assert.Equal(t, float64(20000), captured["vehicle_capacity"])
	assert.Equal(t, "flood", captured["formData"].(map[string]any)["incident_type"])
}

func TestClient_GeneratePlan_BackendErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no solution found", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	_, err = client.GeneratePlan(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "no solution found")
}

func TestClient_GeneratePlan_NoRetryOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	_, err = client.GeneratePlan(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "plan generation must never be retried silently")
}

func TestClient_GeneratePlan_MalformedResponseRejected(t *testing.T) {
	cases := map[string]string{
		"missing depot":  `{"summary": {}, "routes": [], "locations": []}`,
		"missing routes": `{"summary": {}, "locations": [], "depot": {}}`,
		"not json":       `<html>gateway timeout</html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client, err := NewClient(Config{BaseURL: srv.URL}, nil, nil)
			require.NoError(t, err)

			_, err = client.GeneratePlan(context.Background(), testRequest())
			require.Error(t, err)
		})
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "  "}, nil, nil)
	require.Error(t, err)
}

func TestBuildRequest_Preconditions(t *testing.T) {
	needs := &StructuredNeeds{Locations: []LocationNeed{{Name: "A", Lat: 1, Lon: 2}}}

	_, err := BuildRequest("", needs, nil, Tuning{})
	require.ErrorIs(t, err, ErrStrategyNotSet)

	_, err = BuildRequest("express", needs, nil, Tuning{})
	require.ErrorIs(t, err, ErrStrategyNotSet)

	_, err = BuildRequest(StrategyWelfare, nil, nil, Tuning{})
	require.ErrorIs(t, err, ErrNoNeeds)

	req, err := BuildRequest(StrategyNeed, needs, map[string]string{"k": "v"}, Tuning{MaxFleetSize: 3})
	require.NoError(t, err)
	assert.Equal(t, StrategyNeed, req.Strategy)
	assert.Equal(t, 3, req.MaxFleetSize)
}

func TestParseStrategy_ClosedSet(t *testing.T) {
	for _, ok := range []string{"welfare", "need", "fastest", " Fastest "} {
		if _, err := ParseStrategy(ok); err != nil {
			t.Fatalf("expected %q to parse: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "cheapest", "speed"} {
		if _, err := ParseStrategy(bad); err == nil || !strings.Contains(err.Error(), "unknown strategy") {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
