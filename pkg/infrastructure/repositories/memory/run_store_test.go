package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func createRun(t *testing.T, store *RunStore, id string, lines ...entities.RunLine) *entities.Run {
	t.Helper()
	var run *entities.Run
	err := store.WithTx(context.Background(), func(tx repositories.RunTx) error {
		number, err := tx.NextRunNumber(context.Background(), day)
		if err != nil {
			return err
		}
		run = &entities.Run{ID: id, RunNumber: number, RunDate: day, Status: entities.RunCompleted, CreatedAt: day}
		if err := tx.CreateRun(context.Background(), run); err != nil {
			return err
		}
		return tx.InsertLines(context.Background(), lines)
	})
	require.NoError(t, err)
	return run
}

func TestRunStore_RunNumbersIncreasePerDay(t *testing.T) {
	store := NewRunStore()
	first := createRun(t, store, "r1")
	second := createRun(t, store, "r2")

	assert.Equal(t, "MRP-20250301-001", first.RunNumber)
	assert.Equal(t, "MRP-20250301-002", second.RunNumber)
}

func TestRunStore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore()
	boom := errors.New("collector failed")

	err := store.WithTx(ctx, func(tx repositories.RunTx) error {
		require.NoError(t, tx.CreateRun(ctx, &entities.Run{ID: "r1", RunNumber: "MRP-20250301-001"}))
		require.NoError(t, tx.InsertLines(ctx, []entities.RunLine{{ID: "l1", RunID: "r1"}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetRun(ctx, "r1")
	assert.True(t, entities.IsNotFound(err))
	_, err = store.GetLine(ctx, "l1")
	assert.True(t, entities.IsNotFound(err))
}

func TestRunStore_ClaimLineOnce(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore()
	createRun(t, store, "r1", entities.RunLine{ID: "l1", RunID: "r1", Sequence: 1, SuggestionKind: entities.SuggestionPurchase})

	claim := func() error {
		return store.WithTx(ctx, func(tx repositories.RunTx) error {
			if err := tx.ClaimLine(ctx, "l1", day); err != nil {
				return err
			}
			return tx.RecordAppliedOrder(ctx, "l1", entities.AppliedPurchaseRequisition, "PR-1")
		})
	}

	require.NoError(t, claim())
	err := claim()
	assert.ErrorIs(t, err, entities.ErrAlreadyApplied)

	line, err := store.GetLine(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, line.Applied)
	assert.Equal(t, "PR-1", line.AppliedOrderID)

	err = store.WithTx(ctx, func(tx repositories.RunTx) error { return tx.ClaimLine(ctx, "missing", day) })
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestRunStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore()
	createRun(t, store, "r1", entities.RunLine{ID: "l1", RunID: "r1", Sequence: 1})

	require.NoError(t, store.WithTx(ctx, func(tx repositories.RunTx) error { return tx.DeleteRun(ctx, "r1") }))

	lines, err := store.ListLines(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, lines)
	_, err = store.GetLine(ctx, "l1")
	assert.True(t, entities.IsNotFound(err))
}

func TestRunStore_ListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore()
	createRun(t, store, "r1")
	createRun(t, store, "r2")

	runs, err := store.ListRuns(ctx, entities.RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "MRP-20250301-002", runs[0].RunNumber)

	pending, err := store.ListRuns(ctx, entities.RunFilter{Status: entities.RunPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
