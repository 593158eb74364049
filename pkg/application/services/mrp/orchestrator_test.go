package mrp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	testhelpers "github.com/vsinha/mrp-planner/pkg/application/services/testing"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
)

var clock = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, f *testhelpers.Fixture, eventStore events.EventStore) *Service {
	t.Helper()
	seq := 0
	svc, err := NewService(Dependencies{
		Items:      f.Items,
		BOMs:       f.BOMs,
		Inventory:  f.Inventory,
		Demand:     f.Demand,
		Supply:     f.Supply,
		Runs:       f.Runs,
		Purchasing: f.Purchasing,
		Production: f.Production,
		Events:     eventStore,
		Now:        func() time.Time { return clock },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestRunMRP_SafetyStockScenario(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	f.AddItem("X", 3, 10, 20, 5, false)
	f.AddStock("X", 50)
	f.AddSalesDemand("SO-1", "X", 55, d(10))

	report, err := newTestService(t, f, nil).RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	if len(report.Lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(report.Lines))
	}
	line := report.Lines[0]
	if !line.ProjectedOnHand.Equal(q(-5)) || !line.NetRequirement.Equal(q(15)) {
		t.Errorf("Expected projected -5 and net 15, got %s and %s", line.ProjectedOnHand, line.NetRequirement)
	}
	if line.SuggestionKind != entities.SuggestionPurchase || !line.SuggestedQty.Equal(q(20)) {
		t.Errorf("Expected purchase of 20, got %s of %s", line.SuggestionKind, line.SuggestedQty)
	}
	if !line.SuggestedDate.Equal(d(7)) {
		t.Errorf("Expected order date day 7, got %s", line.SuggestedDate.Format(entities.DateLayout))
	}
	if !line.PlannedOrderReceipt.Equal(q(20)) || !line.PlannedOrderRelease.Equal(q(20)) {
		t.Error("Expected planned order fields to mirror the suggested quantity")
	}
	if line.Source.Kind() != entities.DemandSalesOrder || line.Source.Reference() != "SO-1" {
		t.Errorf("Expected sales order source SO-1, got %v", line.Source)
	}

	run := report.Run
	if run.Status != entities.RunCompleted || run.CompletedAt == nil {
		t.Errorf("Expected completed run, got %s", run.Status)
	}
	if run.RunNumber != "MRP-20250301-001" {
		t.Errorf("Expected run number MRP-20250301-001, got %s", run.RunNumber)
	}
	if run.ItemsProcessed != 1 || run.ItemsWithShortage != 1 || run.SuggestionsProduced != 1 {
		t.Errorf("Unexpected counters %d/%d/%d", run.ItemsProcessed, run.ItemsWithShortage, run.SuggestionsProduced)
	}

	stored, err := f.Runs.ListLines(ctx, run.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("Expected 1 persisted line, got %d (%v)", len(stored), err)
	}
}

func TestRunMRP_OrderDateClampedToToday(t *testing.T) {
	f := testhelpers.NewFixture()
	f.AddItem("SLOW", 30, 0, 1, 1, true)
	f.AddSalesDemand("SO-1", "SLOW", 4, d(2))

	report, err := newTestService(t, f, nil).RunMRP(context.Background(), DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	line := report.Lines[0]
	if !line.SuggestedDate.Equal(d(0)) {
		t.Errorf("Expected order date clamped to today, got %s", line.SuggestedDate.Format(entities.DateLayout))
	}
	if line.SuggestionKind != entities.SuggestionManufacture {
		t.Errorf("Expected manufacture suggestion, got %s", line.SuggestionKind)
	}
}

func TestRunMRP_CountersAndItemsWithoutDemand(t *testing.T) {
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, false)
	f.AddItem("B", 1, 0, 1, 1, false)
	f.AddItem("IDLE", 1, 0, 1, 1, false)
	inactive := testhelpers.MustCreateItem("OLD", 1, 0, 1, 1, false)
	inactive.Active = false
	f.Items.AddItem(*inactive)

	f.AddStock("A", 5)
	f.AddSalesDemand("SO-1", "A", 3, d(2))
	f.AddSalesDemand("SO-2", "A", 4, d(4))
	f.AddSalesDemand("SO-3", "A", 4, d(6))
	f.AddWorkOrderDemand("WO-1", "B", 2, 0, d(3))
	f.AddSalesDemand("SO-4", "OLD", 100, d(3))

	report, err := newTestService(t, f, nil).RunMRP(context.Background(), DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	run := report.Run
	if run.ItemsProcessed != 3 {
		t.Errorf("Expected 3 active items processed, got %d", run.ItemsProcessed)
	}
	if run.ItemsWithShortage != 2 {
		t.Errorf("Expected 2 items with shortage, got %d", run.ItemsWithShortage)
	}
	if run.SuggestionsProduced != 3 {
		t.Errorf("Expected 3 suggestions, got %d", run.SuggestionsProduced)
	}
	if len(report.Lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(report.Lines))
	}
	for i, l := range report.Lines {
		if l.Sequence != i+1 {
			t.Errorf("Expected sequence %d, got %d", i+1, l.Sequence)
		}
	}
}

func TestRunMRP_ItemFilter(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, false)
	f.AddItem("B", 1, 0, 1, 1, false)
	f.AddSalesDemand("SO-1", "A", 3, d(2))
	f.AddSalesDemand("SO-2", "B", 3, d(2))
	svc := newTestService(t, f, nil)

	opts := DefaultRunOptions()
	opts.ItemFilter = "B"
	report, err := svc.RunMRP(ctx, opts)
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	if report.Run.ItemsProcessed != 1 || len(report.Lines) != 1 || report.Lines[0].ItemID != "B" {
		t.Errorf("Expected only B to be planned, got %v", report.Lines)
	}

	opts.ItemFilter = "MISSING"
	if _, err := svc.RunMRP(ctx, opts); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found for missing filter item, got %v", err)
	}
}

type failingDemand struct {
	repositories.DemandRepository
	failOn entities.ItemID
}

func (f failingDemand) OpenSalesOrderLines(ctx context.Context, itemID entities.ItemID, w entities.Window) ([]entities.SalesOrderLine, error) {
	if itemID == f.failOn {
		return nil, errors.New("sales order store unavailable")
	}
	return f.DemandRepository.OpenSalesOrderLines(ctx, itemID, w)
}

func TestRunMRP_AtomicOnCollectorFailure(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, false)
	f.AddItem("B", 1, 0, 1, 1, false)
	f.AddSalesDemand("SO-1", "A", 3, d(2))
	f.AddSalesDemand("SO-2", "B", 3, d(2))

	svc, err := NewService(Dependencies{
		Items: f.Items, BOMs: f.BOMs, Inventory: f.Inventory, Supply: f.Supply, Runs: f.Runs,
		Demand: failingDemand{DemandRepository: f.Demand, failOn: "B"},
		Now:    func() time.Time { return clock },
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := svc.RunMRP(ctx, DefaultRunOptions()); err == nil {
		t.Fatal("Expected run to fail")
	}

	runs, err := f.Runs.ListRuns(ctx, entities.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no persisted runs, got %d", len(runs))
	}

	// The failed run did not consume a run number.
	f2 := failingDemand{DemandRepository: f.Demand}
	svc, _ = NewService(Dependencies{
		Items: f.Items, BOMs: f.BOMs, Inventory: f.Inventory, Supply: f.Supply, Runs: f.Runs,
		Demand: f2, Now: func() time.Time { return clock },
	})
	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	if report.Run.RunNumber != "MRP-20250301-001" {
		t.Errorf("Expected MRP-20250301-001, got %s", report.Run.RunNumber)
	}
}

func TestRunMRP_Validation(t *testing.T) {
	svc := newTestService(t, testhelpers.NewFixture(), nil)

	opts := DefaultRunOptions()
	opts.HorizonDays = 0
	if _, err := svc.RunMRP(context.Background(), opts); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for zero horizon, got %v", err)
	}

	opts = RunOptions{HorizonDays: 30}
	if _, err := svc.RunMRP(context.Background(), opts); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error without demand sources, got %v", err)
	}
}

func TestRunMRP_DerivesComponentDemand(t *testing.T) {
	f := testhelpers.NewFixture()
	f.AddItem("ASSY", 2, 0, 1, 1, true)
	f.AddItem("PART", 1, 0, 10, 1, false)
	f.AddBOM("bom-assy", "ASSY", map[string]int64{"PART": 3})
	f.AddSalesDemand("SO-1", "ASSY", 4, d(10))
	f.AddStock("PART", 2)

	opts := DefaultRunOptions()
	opts.DeriveComponentDemand = true
	report, err := newTestService(t, f, nil).RunMRP(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	if len(report.Lines) != 2 {
		t.Fatalf("Expected lines for ASSY and PART, got %d", len(report.Lines))
	}
	assy, part := report.Lines[0], report.Lines[1]
	if assy.ItemID != "ASSY" || part.ItemID != "PART" {
		t.Fatalf("Expected parent before component, got %s then %s", assy.ItemID, part.ItemID)
	}
	if !part.RequirementDate.Equal(assy.SuggestedDate) {
		t.Errorf("Expected component demand at parent release %s, got %s",
			assy.SuggestedDate.Format(entities.DateLayout), part.RequirementDate.Format(entities.DateLayout))
	}
	if !part.GrossRequirement.Equal(q(12)) || !part.NetRequirement.Equal(q(10)) || !part.SuggestedQty.Equal(q(10)) {
		t.Errorf("Expected gross 12, net 10, suggested 10 for PART, got %s, %s, %s", part.GrossRequirement, part.NetRequirement, part.SuggestedQty)
	}
	if part.Source.Kind() != entities.DemandDependent || part.Source.SourceID() != assy.ID {
		t.Errorf("Expected dependent source from %s, got %v", assy.ID, part.Source)
	}
}

func TestRunMRP_DeriveFailsOnCyclicBOM(t *testing.T) {
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, true)
	f.AddItem("B", 1, 0, 1, 1, true)
	f.AddBOM("ba", "A", map[string]int64{"B": 1})
	f.AddBOM("bb", "B", map[string]int64{"A": 1})
	f.AddSalesDemand("SO-1", "A", 1, d(3))

	opts := DefaultRunOptions()
	opts.DeriveComponentDemand = true
	_, err := newTestService(t, f, nil).RunMRP(context.Background(), opts)
	if !errors.Is(err, entities.ErrCyclicBOM) {
		t.Errorf("Expected cyclic BOM error, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, false)
	f.AddSalesDemand("SO-1", "A", 3, d(2))
	eventStore := events.NewInMemoryEventStore()
	svc := newTestService(t, f, eventStore)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	runID := report.Run.ID

	if _, err := svc.MarkRunApplied(ctx, runID); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error while suggestions are unapplied, got %v", err)
	}

	if _, err := svc.ApplySuggestion(ctx, report.Lines[0].ID, false); err != nil {
		t.Fatalf("ApplySuggestion failed: %v", err)
	}
	run, err := svc.MarkRunApplied(ctx, runID)
	if err != nil {
		t.Fatalf("MarkRunApplied failed: %v", err)
	}
	if run.Status != entities.RunApplied {
		t.Errorf("Expected applied, got %s", run.Status)
	}

	if _, err := svc.CancelRun(ctx, runID); !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition from applied, got %v", err)
	}

	second, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("second RunMRP failed: %v", err)
	}
	if second.Run.RunNumber != "MRP-20250301-002" {
		t.Errorf("Expected MRP-20250301-002, got %s", second.Run.RunNumber)
	}
	cancelled, err := svc.CancelRun(ctx, second.Run.ID)
	if err != nil || cancelled.Status != entities.RunCancelled || cancelled.CancelledAt == nil {
		t.Errorf("Expected cancelled run, got %v, %v", cancelled, err)
	}

	if err := svc.DeleteRun(ctx, second.Run.ID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := svc.RunLines(ctx, second.Run.ID); !entities.IsNotFound(err) {
		t.Errorf("Expected deleted run to be gone, got %v", err)
	}
	if err := svc.DeleteRun(ctx, second.Run.ID); !entities.IsNotFound(err) {
		t.Errorf("Expected not found deleting twice, got %v", err)
	}

	runs, err := svc.ListRuns(ctx, entities.RunFilter{})
	if err != nil || len(runs) != 1 {
		t.Errorf("Expected one remaining run, got %d (%v)", len(runs), err)
	}

	stream, _ := eventStore.ReadEvents(events.RunStream(runID), 1)
	types := make([]string, 0, len(stream))
	for _, e := range stream {
		types = append(types, e.Type())
	}
	want := []string{events.RunCompletedEvent, events.ShortageIdentifiedEvent, events.SuggestionAppliedEvent, events.RunAppliedEvent}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("Expected events %v, got %v", want, types)
	}
}

func TestRunMRP_PublicationFailureIsReported(t *testing.T) {
	f := testhelpers.NewFixture()
	f.AddItem("A", 1, 0, 1, 1, false)
	eventStore := events.NewInMemoryEventStore()
	_ = eventStore.Subscribe([]string{events.RunCompletedEvent}, events.HandlerFunc(func(events.Event) error {
		return errors.New("ledger offline")
	}))

	report, err := newTestService(t, f, eventStore).RunMRP(context.Background(), DefaultRunOptions())
	if err != nil {
		t.Fatalf("Expected committed run despite publication failure: %v", err)
	}
	if len(report.SideEffectErrors) != 1 {
		t.Errorf("Expected one side-effect error, got %v", report.SideEffectErrors)
	}
	if report.Run.Status != entities.RunCompleted {
		t.Errorf("Expected completed run, got %s", report.Run.Status)
	}
}

func TestExplodeItem(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	f.AddItem("ASSY", 2, 0, 1, 1, true)
	f.AddItem("SUB", 1, 0, 1, 1, true)
	f.AddItem("PART", 1, 0, 1, 1, false)
	f.AddBOM("bom-assy", "ASSY", map[string]int64{"SUB": 2})
	f.AddBOM("bom-sub", "SUB", map[string]int64{"PART": 3})
	svc := newTestService(t, f, nil)

	components, err := svc.ExplodeItem(ctx, "ASSY", q(5), -1)
	if err != nil {
		t.Fatalf("ExplodeItem failed: %v", err)
	}
	if len(components) != 2 {
		t.Fatalf("Expected 2 components, got %d", len(components))
	}
	if components[1].ItemID != "PART" || components[1].Level != 1 || !components[1].Quantity.Equal(q(30)) {
		t.Errorf("Expected PART x30 at level 1, got %+v", components[1])
	}

	shallow, err := svc.ExplodeItem(ctx, "ASSY", q(5), 0)
	if err != nil {
		t.Fatalf("ExplodeItem failed: %v", err)
	}
	if len(shallow) != 1 {
		t.Errorf("Expected only direct components at max level 0, got %d", len(shallow))
	}

	if _, err := svc.ExplodeItem(ctx, "MISSING", q(1), -1); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ExplodeItem(ctx, "ASSY", q(0), -1); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation for zero quantity, got %v", err)
	}
}
