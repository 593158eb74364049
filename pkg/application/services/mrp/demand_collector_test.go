package mrp

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	testhelpers "github.com/vsinha/mrp-planner/pkg/application/services/testing"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

func TestDemandCollector_Collect(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	window := entities.NewWindow(base, 30)

	f.AddSalesDemand("SO-2", "A", 7, d(12))
	f.AddWorkOrderDemand("WO-1", "A", 10, 4, d(3))
	f.AddWorkOrderDemand("WO-2", "A", 5, 5, d(4)) // fully issued
	f.AddSalesDemand("SO-1", "A", 3, d(3))
	f.AddSalesDemand("SO-9", "A", 3, d(45)) // outside window
	f.Demand.AddSalesOrderLine(entities.SalesOrderLine{
		SalesOrderID: "SO-3", Status: entities.SalesOrderPartiallyFulfilled, DeliveryDate: d(5),
		ItemID: "A", Quantity: q(10), DeliveredQty: q(8),
	})
	f.AddSalesDemand("SO-4", "B", 99, d(5))

	reqs, err := NewDemandCollector(f.Demand).Collect(ctx, "A", window, DemandOptions{IncludeWorkOrders: true, IncludeSalesOrders: true})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := []struct {
		source string
		day    int
		qty    int64
	}{
		{"WO-1", 3, 6},
		{"SO-1", 3, 3},
		{"SO-3", 5, 2},
		{"SO-2", 12, 7},
	}
	if len(reqs) != len(want) {
		t.Fatalf("Expected %d requirements, got %d: %v", len(want), len(reqs), reqs)
	}
	for i, w := range want {
		if reqs[i].Source.SourceID() != w.source || !reqs[i].Date.Equal(d(w.day)) || !reqs[i].Quantity.Equal(q(w.qty)) {
			t.Errorf("requirement %d: expected %s %d on day %d, got %s %s on %s",
				i, w.source, w.qty, w.day, reqs[i].Source.SourceID(), reqs[i].Quantity, reqs[i].Date.Format(entities.DateLayout))
		}
	}
}

func TestDemandCollector_Toggles(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	window := entities.NewWindow(base, 30)
	f.AddSalesDemand("SO-1", "A", 3, d(3))
	f.AddWorkOrderDemand("WO-1", "A", 10, 0, d(3))
	entry, _ := entities.NewPlannerDemand("F-1", "A", entities.DemandForecast, d(7), decimal.NewFromInt(4), "Q2")
	f.Demand.AddPlannerDemand(*entry)

	collector := NewDemandCollector(f.Demand)
	testCases := []struct {
		name string
		opts DemandOptions
		want int
	}{
		{"none", DemandOptions{}, 0},
		{"work orders", DemandOptions{IncludeWorkOrders: true}, 1},
		{"sales orders", DemandOptions{IncludeSalesOrders: true}, 1},
		{"planner", DemandOptions{IncludePlannerDemand: true}, 1},
		{"all", DemandOptions{IncludeWorkOrders: true, IncludeSalesOrders: true, IncludePlannerDemand: true}, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reqs, err := collector.Collect(ctx, "A", window, tc.opts)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}
			if len(reqs) != tc.want {
				t.Errorf("Expected %d requirements, got %d", tc.want, len(reqs))
			}
		})
	}

	reqs, _ := collector.Collect(ctx, "UNKNOWN", window, DemandOptions{IncludeWorkOrders: true, IncludeSalesOrders: true})
	if len(reqs) != 0 {
		t.Errorf("Expected no requirements for an unknown item, got %d", len(reqs))
	}
}

func TestSupplyCollector_Collect(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture()
	window := entities.NewWindow(base, 30)
	f.AddStock("A", 40)
	f.AddStock("A", -50)
	f.AddReceipt("PO-1", "A", 10, d(4))
	f.AddReceipt("PO-2", "A", 5, d(4))
	f.Supply.AddPurchaseOrderLine(entities.PurchaseOrderLine{
		PurchaseOrderID: "PO-3", Status: entities.PurchaseOrderSent, DeliveryDate: d(9),
		ItemID: "A", OrderedQty: q(10), ReceivedQty: q(10),
	})

	supply, err := NewSupplyCollector(f.Inventory, f.Supply).Collect(ctx, "A", window)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !supply.OnHand.Equal(q(-10)) {
		t.Errorf("Expected on-hand -10, got %s", supply.OnHand)
	}
	if len(supply.Receipts) != 1 || !supply.Receipts[d(4)].Equal(q(15)) {
		t.Errorf("Expected 15 receipts on day 4, got %v", supply.Receipts)
	}
}
