package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInMemoryEventStore_VersionsPerStream(t *testing.T) {
	store := NewInMemoryEventStore()
	run := &entities.Run{ID: "r1", RunNumber: "MRP-20250301-001", Status: entities.RunCompleted}

	require.NoError(t, store.AppendEvent(RunStream(run.ID), NewRunCompletedEvent(run)))
	require.NoError(t, store.AppendEvent(RunStream(run.ID), NewRunStatusChangedEvent(RunAppliedEvent, run)))
	require.NoError(t, store.AppendEvent(RunStream("r2"), NewRunStatusChangedEvent(RunCancelledEvent, &entities.Run{ID: "r2"})))

	events, err := store.ReadEvents(RunStream(run.ID), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, RunCompletedEvent, events[0].Type())
	assert.Equal(t, 1, events[0].Version())
	assert.Equal(t, 2, events[1].Version())

	later, err := store.ReadEvents(RunStream(run.ID), 2)
	require.NoError(t, err)
	assert.Len(t, later, 1)

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[1].(Record).Position)
	assert.Equal(t, 1, all[1].Version(), "r2 has its own version sequence")

	none, err := store.ReadEvents("missing", 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryEventStore_DispatchesSynchronously(t *testing.T) {
	store := NewInMemoryEventStore()

	var seen []string
	require.NoError(t, store.Subscribe([]string{SuggestionAppliedEvent}, HandlerFunc(func(e Event) error {
		seen = append(seen, e.Type())
		return nil
	})))
	require.NoError(t, store.Subscribe([]string{AllEvents}, HandlerFunc(func(e Event) error {
		seen = append(seen, "all:"+e.Type())
		return nil
	})))

	line := entities.RunLine{ID: "l1", RunID: "r1", ItemID: "A", AppliedOrderKind: entities.AppliedAcknowledged}
	require.NoError(t, store.AppendEvent(RunStream("r1"), NewSuggestionAppliedEvent(line)))

	assert.Equal(t, []string{SuggestionAppliedEvent, "all:" + SuggestionAppliedEvent}, seen)
}

func TestInMemoryEventStore_HandlerErrorKeepsEvent(t *testing.T) {
	store := NewInMemoryEventStore()
	boom := errors.New("subscriber down")
	require.NoError(t, store.Subscribe([]string{RunCompletedEvent}, HandlerFunc(func(Event) error { return boom })))

	err := store.AppendEvent(RunStream("r1"), NewRunCompletedEvent(&entities.Run{ID: "r1"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	events, err := store.ReadEvents(RunStream("r1"), 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestInMemoryEventStore_Rejects(t *testing.T) {
	store := NewInMemoryEventStore()
	assert.Error(t, store.AppendEvent("", NewEvent(RunDeletedEvent, "", nil)))
	assert.Error(t, store.AppendEvent(RunStream("r1"), NewEvent("", RunStream("r1"), nil)))
	assert.Error(t, store.Subscribe([]string{RunDeletedEvent}, nil))
	assert.Error(t, store.Subscribe(nil, HandlerFunc(func(Event) error { return nil })))

	all, err := store.ReadAllEvents(0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecord_JSON(t *testing.T) {
	store := NewInMemoryEventStore()
	run := &entities.Run{ID: "r1", RunNumber: "MRP-20250301-001", Status: entities.RunCancelled}
	require.NoError(t, store.AppendEvent(RunStream(run.ID), NewRunStatusChangedEvent(RunCancelledEvent, run)))

	all, err := store.ReadAllEvents(0)
	require.NoError(t, err)
	data, err := json.Marshal(all[0])
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, RunCancelledEvent, got["type"])
	assert.Equal(t, "run-r1", got["stream_id"])
	assert.Equal(t, float64(1), got["version"])
	assert.Equal(t, "MRP-20250301-001", got["data"].(map[string]any)["run_number"])
}
