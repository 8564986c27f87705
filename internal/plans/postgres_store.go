package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists plans in the saved_plans table. Plan and record
// payloads are stored as JSONB so the schema survives contract additions.
type PostgresStore struct {
	db db
}

// NewPostgresStore wraps a pgx pool or compatible handle.
func NewPostgresStore(db db) *PostgresStore {
	if db == nil {
		panic("plans: database handle required")
	}
	return &PostgresStore{db: db}
}

// Save inserts the plan row.
func (s *PostgresStore) Save(ctx context.Context, plan *SavedPlan) error {
	if err := validate(plan); err != nil {
		return err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	planJSON, err := json.Marshal(plan.Plan)
	if err != nil {
		return fmt.Errorf("plans: encode plan failed: %w", err)
	}
	recordJSON, err := json.Marshal(plan.Record)
	if err != nil {
		return fmt.Errorf("plans: encode record failed: %w", err)
	}

	query := `
		INSERT INTO saved_plans (id, org_id, author, plan, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query,
		plan.ID,
		plan.OrgID,
		plan.Author,
		planJSON,
		recordJSON,
		plan.CreatedAt,
	); err != nil {
		return fmt.Errorf("plans: insert failed: %w", err)
	}
	return nil
}

// List returns the org's plans, newest first.
func (s *PostgresStore) List(ctx context.Context, orgID string) ([]SavedPlan, error) {
	query := `
		SELECT id, org_id, author, plan, record, created_at
		FROM saved_plans
		WHERE org_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("plans: query failed: %w", err)
	}
	defer rows.Close()

	var out []SavedPlan
	for rows.Next() {
		var (
			plan       SavedPlan
			planJSON   []byte
			recordJSON []byte
		)
		if err := rows.Scan(&plan.ID, &plan.OrgID, &plan.Author, &planJSON, &recordJSON, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("plans: scan failed: %w", err)
		}
		if err := json.Unmarshal(planJSON, &plan.Plan); err != nil {
			return nil, fmt.Errorf("plans: decode plan %s failed: %w", plan.ID, err)
		}
		if err := json.Unmarshal(recordJSON, &plan.Record); err != nil {
			return nil, fmt.Errorf("plans: decode record %s failed: %w", plan.ID, err)
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plans: iterate failed: %w", err)
	}
	return out, nil
}
