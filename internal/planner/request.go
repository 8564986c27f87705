package planner

import "errors"

// ErrStrategyNotSet indicates BuildRequest was called before strategy
// selection. The conversation flow makes this unreachable for user input;
// hitting it means a caller skipped the state machine.
var ErrStrategyNotSet = errors.New("planner: strategy not set")

// ErrNoNeeds indicates BuildRequest was called without a validated needs set.
var ErrNoNeeds = errors.New("planner: structured needs not set")

// BuildRequest assembles the backend payload from already-collected session
// data. Pure function: nothing is derived or recomputed beyond what the
// conversation already holds.
func BuildRequest(strategy Strategy, needs *StructuredNeeds, formData map[string]string, tuning Tuning) (PlanRequest, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return PlanRequest{}, ErrStrategyNotSet
	}
	if needs == nil || len(needs.Locations) == 0 {
		return PlanRequest{}, ErrNoNeeds
	}
	return PlanRequest{
		Strategy:    strategy,
		ParsedNeeds: *needs,
		FormData:    formData,
		Tuning:      tuning,
	}, nil
}
