package plans

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/internal/session"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, logging.New("error", "text")), mr
}

func testPlan(orgID, title string) *SavedPlan {
	return &SavedPlan{
		OrgID: orgID,
		Plan: planner.Plan{
			Summary: planner.PlanSummary{Title: title, Strategy: "fastest"},
			Routes:  []planner.Route{{VehicleID: 0, Load: 100}},
			Depot:   planner.Depot{Name: "Base"},
		},
		Record: session.Record{InitialDescription: "flood", Strategy: planner.StrategyFastest},
	}
}

func TestRedisStore_SaveAssignsIdentityAndLists(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	plan := testPlan("org-a", "Plan One")
	require.NoError(t, store.Save(ctx, plan))
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())

	list, err := store.List(ctx, "org-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Plan One", list[0].Plan.Summary.Title)
	assert.Equal(t, "flood", list[0].Record.InitialDescription)
}

func TestRedisStore_ListNewestFirstAndOrgScoped(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	older := testPlan("org-a", "Older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, older))

	newer := testPlan("org-a", "Newer")
	require.NoError(t, store.Save(ctx, newer))

	other := testPlan("org-b", "Elsewhere")
	require.NoError(t, store.Save(ctx, other))

	list, err := store.List(ctx, "org-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Plan.Summary.Title)
	assert.Equal(t, "Older", list[1].Plan.Summary.Title)
}

func TestRedisStore_ListSkipsCorruptEntries(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testPlan("org-a", "Good")))
	mr.HSet(plansKey("org-a"), "broken", "{not json")

	list, err := store.List(ctx, "org-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Good", list[0].Plan.Summary.Title)
}

func TestRedisStore_SaveRejectsInvalid(t *testing.T) {
	store, _ := newTestRedisStore(t)

	require.ErrorIs(t, store.Save(context.Background(), nil), ErrInvalidPlan)
	require.ErrorIs(t, store.Save(context.Background(), &SavedPlan{OrgID: ""}), ErrInvalidPlan)
}

func TestRedisStore_SubscribeDeliversSnapshotThenUpdates(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testPlan("org-a", "First")))

	ch, cancel, err := store.Subscribe(ctx, "org-a")
	require.NoError(t, err)
	defer cancel()

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, store.Save(ctx, testPlan("org-a", "Second")))

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no update after save")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
}
