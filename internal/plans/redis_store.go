package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// RedisStore keeps each org's plans in a hash keyed by plan ID and publishes
// a notification per save so watchers can refresh.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
	tracer trace.Tracer
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{
		client: client,
		logger: logger,
		tracer: otel.Tracer("alloc8.internal.plans"),
	}
}

func plansKey(orgID string) string {
	return "alloc8:plans:" + orgID
}

func plansChannel(orgID string) string {
	return "alloc8:plans:events:" + orgID
}

// Save writes the plan and notifies subscribers.
func (s *RedisStore) Save(ctx context.Context, plan *SavedPlan) error {
	ctx, span := s.tracer.Start(ctx, "plans.redis.save")
	defer span.End()

	if err := validate(plan); err != nil {
		return err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("plans: encode failed: %w", err)
	}
	if err := s.client.HSet(ctx, plansKey(plan.OrgID), plan.ID, data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("plans: redis write failed: %w", err)
	}
	// Notification delivery is best effort; the data is already durable.
	if err := s.client.Publish(ctx, plansChannel(plan.OrgID), plan.ID).Err(); err != nil {
		s.logger.Warn("plans: publish failed", "org_id", plan.OrgID, "error", err)
	}
	return nil
}

// List returns the org's plans, newest first.
func (s *RedisStore) List(ctx context.Context, orgID string) ([]SavedPlan, error) {
	ctx, span := s.tracer.Start(ctx, "plans.redis.list")
	defer span.End()

	entries, err := s.client.HGetAll(ctx, plansKey(orgID)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("plans: redis read failed: %w", err)
	}
	out := make([]SavedPlan, 0, len(entries))
	for id, raw := range entries {
		var plan SavedPlan
		if err := json.Unmarshal([]byte(raw), &plan); err != nil {
			s.logger.Warn("plans: skipping unreadable entry", "org_id", orgID, "plan_id", id, "error", err)
			continue
		}
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Subscribe streams list snapshots: one immediately, then one per saved plan.
func (s *RedisStore) Subscribe(ctx context.Context, orgID string) (<-chan []SavedPlan, func(), error) {
	pubsub := s.client.Subscribe(ctx, plansChannel(orgID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("plans: subscribe failed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []SavedPlan, 1)

	push := func() {
		list, err := s.List(ctx, orgID)
		if err != nil {
			s.logger.Warn("plans: snapshot refresh failed", "org_id", orgID, "error", err)
			return
		}
		select {
		case out <- list:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)
		defer pubsub.Close()

		push()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				push()
			}
		}
	}()

	return out, cancel, nil
}
