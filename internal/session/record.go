package session

import (
	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/planner"
)

// Answer pairs a dynamic question with the user's reply, in question order.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Record accumulates everything gathered across a data-collection session.
// It is mutated only by the owning Controller, in stage order.
type Record struct {
	InitialDescription string                   `json:"initialDescription"`
	FormContext        map[string]string        `json:"formContext,omitempty"`
	AugmentedData      string                   `json:"augmentedData,omitempty"`
	Sources            []gateway.Source         `json:"sources,omitempty"`
	Questions          []string                 `json:"questions,omitempty"`
	Answers            []Answer                 `json:"answers,omitempty"`
	FinalSummary       string                   `json:"finalSummary,omitempty"`
	ParsedNeeds        *planner.StructuredNeeds `json:"parsedNeeds,omitempty"`
	Strategy           planner.Strategy         `json:"strategy,omitempty"`
}

// PlanRequest assembles the backend payload from the record. Requires the
// strategy and parsed needs to be set, which the controller's state machine
// guarantees before plan generation is reachable.
func (r *Record) PlanRequest(tuning planner.Tuning) (planner.PlanRequest, error) {
	return planner.BuildRequest(r.Strategy, r.ParsedNeeds, r.FormContext, tuning)
}

// clone returns a deep copy safe to hand outside the controller.
func (r *Record) clone() Record {
	out := *r
	if r.FormContext != nil {
		out.FormContext = make(map[string]string, len(r.FormContext))
		for k, v := range r.FormContext {
			out.FormContext[k] = v
		}
	}
	out.Sources = append([]gateway.Source(nil), r.Sources...)
	out.Questions = append([]string(nil), r.Questions...)
	out.Answers = append([]Answer(nil), r.Answers...)
	if r.ParsedNeeds != nil {
		needs := planner.StructuredNeeds{
			Locations: append([]planner.LocationNeed(nil), r.ParsedNeeds.Locations...),
		}
		out.ParsedNeeds = &needs
	}
	return out
}
