package planner

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy is the user-chosen optimization preference, forwarded opaquely to
// the planning backend.
type Strategy string

const (
	StrategyWelfare Strategy = "welfare"
	StrategyNeed    Strategy = "need"
	StrategyFastest Strategy = "fastest"
)

// ErrUnknownStrategy indicates a strategy outside the closed set.
var ErrUnknownStrategy = errors.New("planner: unknown strategy")

// ParseStrategy validates a strategy identifier against the closed set.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyWelfare:
		return StrategyWelfare, nil
	case StrategyNeed:
		return StrategyNeed, nil
	case StrategyFastest:
		return StrategyFastest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}

// NeedQuantities itemizes resource demand at a location.
type NeedQuantities struct {
	Water   float64 `json:"water"`
	Food    float64 `json:"food"`
	Medical float64 `json:"medical"`
}

// LocationNeed is one delivery target with its demand.
type LocationNeed struct {
	Name  string         `json:"name"`
	Lat   float64        `json:"lat"`
	Lon   float64        `json:"lon"`
	Needs NeedQuantities `json:"needs"`
}

// StructuredNeeds is the validated location/demand set extracted from a
// conversation summary.
type StructuredNeeds struct {
	Locations []LocationNeed `json:"locations"`
}

// Tuning carries fleet parameters forwarded to the optimizer.
type Tuning struct {
	VehicleCapacity  int `json:"vehicle_capacity,omitempty"`
	MaxFleetSize     int `json:"max_fleet_size,omitempty"`
	TimeLimitSeconds int `json:"time_limit_seconds,omitempty"`
}

// PlanRequest is the payload sent verbatim to the planning backend.
type PlanRequest struct {
	Strategy    Strategy          `json:"strategy"`
	ParsedNeeds StructuredNeeds   `json:"parsedNeeds"`
	FormData    map[string]string `json:"formData,omitempty"`
	Tuning
}

// PlanSummary is the headline block of a generated plan.
type PlanSummary struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Strategy            string  `json:"strategy"`
	TotalDistanceMeters float64 `json:"totalDistanceMeters"`
	AssignedResources   float64 `json:"assignedResources"`
	TotalTrucks         int     `json:"totalTrucks"`
}

// Stop is one delivery visited by a vehicle.
type Stop struct {
	Name string  `json:"name"`
	Load float64 `json:"load"`
	ETA  float64 `json:"eta,omitempty"`
}

// Segment is one leg of a route with its transport mode and geometry.
// Geometry points are [lon, lat] pairs, as the backend emits GeoJSON order.
type Segment struct {
	Mode        string      `json:"mode"`
	DistanceLeg float64     `json:"distance_leg"`
	Geometry    [][]float64 `json:"geometry,omitempty"`
}

// Route is one vehicle's itinerary.
type Route struct {
	VehicleID      int       `json:"vehicle_id"`
	VehicleType    string    `json:"vehicle_type,omitempty"`
	DistanceMeters float64   `json:"distance_meters"`
	Load           float64   `json:"load"`
	Stops          []Stop    `json:"stops"`
	Segments       []Segment `json:"segments,omitempty"`
}

// Depot is the distribution origin.
type Depot struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Plan is the optimizer's response. The service validates its shape and
// forwards it; route geometry is never interpreted here.
type Plan struct {
	Summary   PlanSummary    `json:"summary"`
	Routes    []Route        `json:"routes"`
	Locations []LocationNeed `json:"locations"`
	Depot     Depot          `json:"depot"`
	Source    string         `json:"source,omitempty"`
}
