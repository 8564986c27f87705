// Package plans persists generated distribution plans per organization and
// fans out change notifications to live watchers.
package plans

import (
	"context"
	"errors"
	"time"

	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/internal/session"
)

// SavedPlan is a generated plan together with the session data it came from,
// so a load can restore the full display context.
type SavedPlan struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"orgId"`
	Author    string         `json:"author,omitempty"`
	Plan      planner.Plan   `json:"plan"`
	Record    session.Record `json:"record"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ErrInvalidPlan rejects a save with no org or no plan content.
var ErrInvalidPlan = errors.New("plans: org ID and plan content required")

// Store persists saved plans scoped by organization.
type Store interface {
	// Save persists the plan, assigning ID and CreatedAt when unset.
	Save(ctx context.Context, plan *SavedPlan) error
	// List returns the org's saved plans, newest first.
	List(ctx context.Context, orgID string) ([]SavedPlan, error)
}

// Feed delivers the org's full plan list whenever it changes. The initial
// snapshot is delivered immediately on subscribe.
type Feed interface {
	// Subscribe returns a channel of list snapshots and a cancel function.
	// The channel is closed after cancel or when ctx ends.
	Subscribe(ctx context.Context, orgID string) (<-chan []SavedPlan, func(), error)
}

func validate(plan *SavedPlan) error {
	if plan == nil || plan.OrgID == "" || len(plan.Plan.Routes) == 0 && plan.Plan.Summary.Title == "" {
		return ErrInvalidPlan
	}
	return nil
}
