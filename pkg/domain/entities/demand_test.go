package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDemandSource_RoundTrip(t *testing.T) {
	sources := []DemandSource{
		WorkOrderDemand{WorkOrderID: "wo-1", Number: "WO-0001"},
		SalesOrderDemand{SalesOrderID: "so-1", Number: "SO-0001"},
		ManualDemand{EntryID: "m-1", Note: "trade show"},
		ForecastDemand{EntryID: "f-1", Note: "Q2"},
		DependentDemand{ParentItemID: "ASSY", ParentLineID: "line-1"},
	}

	for _, src := range sources {
		t.Run(string(src.Kind()), func(t *testing.T) {
			kind, id, ref := SourceFields(src)
			got, err := NewDemandSource(kind, id, ref)
			if err != nil {
				t.Fatalf("NewDemandSource failed: %v", err)
			}
			if got != src {
				t.Errorf("Expected %#v, got %#v", src, got)
			}
		})
	}

	got, err := NewDemandSource("", "", "")
	if err != nil || got != nil {
		t.Errorf("Expected nil source for empty kind, got %v, %v", got, err)
	}
	if _, err := NewDemandSource("transfer", "x", ""); err == nil {
		t.Error("Expected unknown kind to be rejected")
	}
}

func TestOpenStatuses(t *testing.T) {
	if !WorkOrderInProgress.IsOpen() || WorkOrderCompleted.IsOpen() {
		t.Error("Unexpected work order open status")
	}
	if !SalesOrderPartiallyFulfilled.IsOpen() || SalesOrderDraft.IsOpen() {
		t.Error("Unexpected sales order open status")
	}
	if !PurchaseOrderSent.IsOpen() || PurchaseOrderReceived.IsOpen() {
		t.Error("Unexpected purchase order open status")
	}
}

func TestPlannerDemand_Validation(t *testing.T) {
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	p, err := NewPlannerDemand("f-1", "ITEM", DemandForecast, date, decimal.NewFromInt(10), "")
	if err != nil {
		t.Fatalf("Expected valid planner demand: %v", err)
	}
	if p.Source().Kind() != DemandForecast {
		t.Errorf("Expected forecast source, got %s", p.Source().Kind())
	}

	if _, err := NewPlannerDemand("x", "ITEM", DemandSalesOrder, date, decimal.NewFromInt(1), ""); err == nil {
		t.Error("Expected sales order kind to be rejected for planner demand")
	}
}

func TestErrors_MatchSentinels(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", NewValidationError("bad %s", "input"), ErrValidation},
		{"not found", &NotFoundError{Entity: "run", ID: "r1"}, ErrNotFound},
		{"already applied", &AlreadyAppliedError{LineID: "l1"}, ErrAlreadyApplied},
		{"external", &ExternalServiceError{Service: "purchasing", Err: errors.New("down")}, ErrExternalService},
		{"cyclic", &CyclicBOMError{Path: []ItemID{"A", "B", "A"}}, ErrCyclicBOM},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("Expected %v to match %v", tc.err, tc.sentinel)
			}
		})
	}

	if got := (&CyclicBOMError{Path: []ItemID{"A", "B", "A"}}).Error(); got != "cyclic bill of materials: A -> B -> A" {
		t.Errorf("Unexpected cyclic error message %q", got)
	}
	if !IsConflict(&AlreadyAppliedError{LineID: "l1"}) || !IsNotFound(&NotFoundError{}) {
		t.Error("Expected helper classification to match")
	}
}
