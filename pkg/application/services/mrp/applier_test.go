package mrp

import (
	"context"
	"errors"
	"testing"

	testhelpers "github.com/vsinha/mrp-planner/pkg/application/services/testing"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
)

// mixedFixture has three purchased shortages and one manufactured shortage
func mixedFixture() *testhelpers.Fixture {
	f := testhelpers.NewFixture()
	f.AddItem("BOLT", 2, 0, 1, 1, false)
	f.AddItem("NUT", 2, 0, 1, 1, false)
	f.AddItem("WASHER", 2, 0, 1, 1, false)
	f.AddItem("FRAME", 4, 0, 1, 1, true)
	f.AddBOM("bom-frame", "FRAME", map[string]int64{"BOLT": 4})

	f.AddSalesDemand("SO-1", "BOLT", 10, d(10))
	f.AddSalesDemand("SO-2", "NUT", 20, d(11))
	f.AddSalesDemand("SO-3", "WASHER", 30, d(12))
	f.AddSalesDemand("SO-4", "FRAME", 2, d(15))
	return f
}

func lineFor(t *testing.T, lines []entities.RunLine, item entities.ItemID) entities.RunLine {
	t.Helper()
	for _, l := range lines {
		if l.ItemID == item {
			return l
		}
	}
	t.Fatalf("no line for %s", item)
	return entities.RunLine{}
}

func TestApplySuggestion_CreatesRequisitionOnce(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	store := events.NewInMemoryEventStore()
	svc := newTestService(t, f, store)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	bolt := lineFor(t, report.Lines, "BOLT")

	res, err := svc.ApplySuggestion(ctx, bolt.ID, true)
	if err != nil {
		t.Fatalf("ApplySuggestion failed: %v", err)
	}
	if res.OrderKind != entities.AppliedPurchaseRequisition || res.OrderID != "PR-00001" {
		t.Errorf("Expected requisition PR-00001, got %s %s", res.OrderKind, res.OrderID)
	}

	_, err = svc.ApplySuggestion(ctx, bolt.ID, true)
	if !errors.Is(err, entities.ErrAlreadyApplied) {
		t.Errorf("Expected already applied, got %v", err)
	}
	if n := len(f.Purchasing.Requisitions()); n != 1 {
		t.Errorf("Expected exactly 1 requisition, got %d", n)
	}

	stored, err := f.Runs.GetLine(ctx, bolt.ID)
	if err != nil {
		t.Fatalf("GetLine failed: %v", err)
	}
	if !stored.Applied || stored.AppliedAt == nil || stored.AppliedOrderID != "PR-00001" {
		t.Errorf("Expected stored line to record the requisition, got %+v", stored)
	}

	req := f.Purchasing.Requisitions()[0]
	if len(req.Lines) != 1 || !req.Lines[0].Quantity.Equal(q(10)) || !req.Lines[0].NeededBy.Equal(d(8)) {
		t.Errorf("Unexpected requisition lines %+v", req.Lines)
	}
	if req.Note != report.Run.RunNumber+" line 1" {
		t.Errorf("Expected note to reference the run line, got %q", req.Note)
	}

	applied, _ := store.ReadEvents(events.RunStream(report.Run.ID), 1)
	count := 0
	for _, e := range applied {
		if e.Type() == events.SuggestionAppliedEvent {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected 1 suggestion applied event, got %d", count)
	}
}

func TestApplySuggestion_WorkOrderUsesActiveBOM(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	svc := newTestService(t, f, nil)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	res, err := svc.ApplySuggestion(ctx, lineFor(t, report.Lines, "FRAME").ID, true)
	if err != nil {
		t.Fatalf("ApplySuggestion failed: %v", err)
	}
	if res.OrderKind != entities.AppliedWorkOrder {
		t.Errorf("Expected work order, got %s", res.OrderKind)
	}

	wos := f.Production.WorkOrders()
	if len(wos) != 1 {
		t.Fatalf("Expected 1 work order, got %d", len(wos))
	}
	if wos[0].Request.BOMID != "bom-frame" || !wos[0].Request.Quantity.Equal(q(2)) || !wos[0].Request.PlannedStart.Equal(d(11)) {
		t.Errorf("Unexpected work order %+v", wos[0])
	}
}

func TestApplySuggestion_ExternalFailureLeavesLineUnapplied(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	f.Purchasing.Err = errors.New("purchasing offline")
	svc := newTestService(t, f, nil)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}
	bolt := lineFor(t, report.Lines, "BOLT")

	_, err = svc.ApplySuggestion(ctx, bolt.ID, true)
	if !errors.Is(err, entities.ErrExternalService) {
		t.Fatalf("Expected external service error, got %v", err)
	}

	stored, _ := f.Runs.GetLine(ctx, bolt.ID)
	if stored.Applied || stored.AppliedAt != nil {
		t.Error("Expected line to stay unapplied after failed call")
	}

	f.Purchasing.Err = nil
	if _, err := svc.ApplySuggestion(ctx, bolt.ID, true); err != nil {
		t.Errorf("Expected retry to succeed, got %v", err)
	}
}

func TestApplySuggestion_Acknowledge(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	svc := newTestService(t, f, nil)

	report, _ := svc.RunMRP(ctx, DefaultRunOptions())
	res, err := svc.ApplySuggestion(ctx, lineFor(t, report.Lines, "NUT").ID, false)
	if err != nil {
		t.Fatalf("ApplySuggestion failed: %v", err)
	}
	if res.OrderKind != entities.AppliedAcknowledged || res.OrderID != "" {
		t.Errorf("Expected acknowledged without order, got %s %q", res.OrderKind, res.OrderID)
	}
	if len(f.Purchasing.Requisitions()) != 0 {
		t.Error("Expected no requisition when auto create is off")
	}
}

func TestApplySuggestion_Validation(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	f.AddItem("SPARE", 1, 0, 1, 1, false)
	f.AddStock("SPARE", 100)
	f.AddSalesDemand("SO-9", "SPARE", 1, d(3))
	svc := newTestService(t, f, nil)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	if _, err := svc.ApplySuggestion(ctx, "", true); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for empty id, got %v", err)
	}
	if _, err := svc.ApplySuggestion(ctx, "missing", true); !entities.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := svc.ApplySuggestion(ctx, lineFor(t, report.Lines, "SPARE").ID, true); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for line without suggestion, got %v", err)
	}

	if _, err := svc.CancelRun(ctx, report.Run.ID); err != nil {
		t.Fatalf("CancelRun failed: %v", err)
	}
	if _, err := svc.ApplySuggestion(ctx, lineFor(t, report.Lines, "BOLT").ID, true); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for cancelled run, got %v", err)
	}
	if _, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, true); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error applying a cancelled run, got %v", err)
	}
}

func TestApplyAllSuggestions_BatchesPurchases(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	svc := newTestService(t, f, nil)

	report, err := svc.RunMRP(ctx, DefaultRunOptions())
	if err != nil {
		t.Fatalf("RunMRP failed: %v", err)
	}

	summary, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, true)
	if err != nil {
		t.Fatalf("ApplyAllSuggestions failed: %v", err)
	}
	if summary.PurchaseRequisitions != 1 || summary.WorkOrders != 1 || summary.Acknowledged != 0 {
		t.Errorf("Expected 1 requisition and 1 work order, got %+v", summary)
	}
	if len(summary.Applied) != 4 || len(summary.Errors) != 0 {
		t.Errorf("Expected 4 applied lines and no errors, got %d / %v", len(summary.Applied), summary.Errors)
	}

	reqs := f.Purchasing.Requisitions()
	if len(reqs) != 1 || len(reqs[0].Lines) != 3 {
		t.Fatalf("Expected one requisition with 3 lines, got %+v", reqs)
	}
	if len(f.Production.WorkOrders()) != 1 {
		t.Errorf("Expected 1 work order, got %d", len(f.Production.WorkOrders()))
	}

	lines, _ := f.Runs.ListLines(ctx, report.Run.ID)
	for _, l := range lines {
		if !l.Applied {
			t.Errorf("Expected line %d to be applied", l.Sequence)
		}
	}

	again, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, true)
	if err != nil {
		t.Fatalf("second ApplyAllSuggestions failed: %v", err)
	}
	if len(again.Applied) != 0 || again.PurchaseRequisitions != 0 {
		t.Errorf("Expected nothing left to apply, got %+v", again)
	}
	if len(f.Purchasing.Requisitions()) != 1 {
		t.Error("Expected no additional requisition")
	}

	if _, err := svc.MarkRunApplied(ctx, report.Run.ID); err != nil {
		t.Errorf("Expected run to be markable as applied, got %v", err)
	}
}

func TestApplyAllSuggestions_CollectsFailures(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	f.Production.FailItems["FRAME"] = errors.New("routing missing")
	svc := newTestService(t, f, nil)

	report, _ := svc.RunMRP(ctx, DefaultRunOptions())
	summary, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, true)
	if err != nil {
		t.Fatalf("ApplyAllSuggestions failed: %v", err)
	}
	if summary.PurchaseRequisitions != 1 || summary.WorkOrders != 0 {
		t.Errorf("Expected the requisition to survive the work order failure, got %+v", summary)
	}
	if len(summary.Errors) != 1 {
		t.Errorf("Expected 1 error, got %v", summary.Errors)
	}

	frame, _ := f.Runs.GetLine(ctx, lineFor(t, report.Lines, "FRAME").ID)
	if frame.Applied {
		t.Error("Expected failed work order line to stay unapplied")
	}
}

func TestApplyAllSuggestions_AcknowledgeEach(t *testing.T) {
	ctx := context.Background()
	f := mixedFixture()
	svc := newTestService(t, f, nil)

	report, _ := svc.RunMRP(ctx, DefaultRunOptions())
	summary, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, false)
	if err != nil {
		t.Fatalf("ApplyAllSuggestions failed: %v", err)
	}
	if summary.Acknowledged != 4 || summary.PurchaseRequisitions != 0 || summary.WorkOrders != 0 {
		t.Errorf("Expected 4 acknowledged lines, got %+v", summary)
	}
	if len(f.Purchasing.Requisitions()) != 0 || len(f.Production.WorkOrders()) != 0 {
		t.Error("Expected no external orders")
	}
}
