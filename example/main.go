package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

type part struct {
	id           string
	leadTime     int
	minOrder     int64
	multiple     int64
	manufactured bool
}

func main() {
	ctx := context.Background()
	today := entities.Day(time.Now())

	items := memory.NewItemRepository(8)
	boms := memory.NewBOMRepository(4)
	inventory := memory.NewInventoryRepository()
	demand := memory.NewDemandRepository()
	supply := memory.NewSupplyRepository()
	purchasing := memory.NewPurchasing()
	production := memory.NewProduction()

	setupRocketEngine(items, boms, inventory, supply, today)

	// 9 engines for a first stage
	demand.AddSalesOrderLine(entities.SalesOrderLine{
		SalesOrderID: "so-mars-001",
		OrderNumber:  "MISSION_MARS_001",
		Status:       entities.SalesOrderConfirmed,
		DeliveryDate: today.AddDate(0, 0, 60),
		ItemID:       "ROCKET_ENGINE",
		Quantity:     decimal.NewFromInt(9),
	})

	log, err := logger.New("dev", "warn")
	if err != nil {
		fmt.Printf("❌ Logger failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	svc, err := mrp.NewService(mrp.Dependencies{
		Items:      items,
		BOMs:       boms,
		Inventory:  inventory,
		Demand:     demand,
		Supply:     supply,
		Runs:       memory.NewRunStore(),
		Purchasing: purchasing,
		Production: production,
		Events:     events.NewInMemoryEventStore(),
		Logger:     log,
	})
	if err != nil {
		fmt.Printf("❌ Setup failed: %v\n", err)
		os.Exit(1)
	}

	printer, err := output.NewPrinter(os.Stdout, output.Config{Format: output.FormatText})
	if err != nil {
		fmt.Printf("❌ Setup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🚀 Running MRP for Mars Mission...")
	fmt.Println()

	opts := mrp.DefaultRunOptions()
	opts.DeriveComponentDemand = true
	opts.Note = "Mars mission first stage"
	report, err := svc.RunMRP(ctx, opts)
	if err != nil {
		fmt.Printf("❌ MRP failed: %v\n", err)
		os.Exit(1)
	}
	if err := printer.Run(dto.NewRunDetail(report)); err != nil {
		fmt.Printf("❌ Output failed: %v\n", err)
		os.Exit(1)
	}

	analysis, err := svc.AnalyzeCriticalPath(ctx, "ROCKET_ENGINE", decimal.NewFromInt(9), 3)
	if err != nil {
		fmt.Printf("❌ Critical path failed: %v\n", err)
		os.Exit(1)
	}
	if err := printer.CriticalPath(analysis); err != nil {
		fmt.Printf("❌ Output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()

	summary, err := svc.ApplyAllSuggestions(ctx, report.Run.ID, true)
	if err != nil {
		fmt.Printf("❌ Apply failed: %v\n", err)
		os.Exit(1)
	}
	if err := printer.ApplySummary(summary); err != nil {
		fmt.Printf("❌ Output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()

	for _, r := range purchasing.Requisitions() {
		fmt.Printf("🧾 %s: %d lines (%s)\n", r.ID, len(r.Lines), r.Note)
	}
	for _, wo := range production.WorkOrders() {
		fmt.Printf("🏭 %s: %s x%s start %s\n", wo.ID, wo.Request.ItemID, wo.Request.Quantity, wo.Request.PlannedStart.Format(entities.DateLayout))
	}

	if _, err := svc.MarkRunApplied(ctx, report.Run.ID); err != nil {
		fmt.Printf("❌ Close failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n✅ Run %s applied\n", report.Run.RunNumber)
}

// setupRocketEngine loads a two-level engine structure with some stock and an
// open nozzle order
func setupRocketEngine(
	items *memory.ItemRepository,
	boms *memory.BOMRepository,
	inventory *memory.InventoryRepository,
	supply *memory.SupplyRepository,
	today time.Time,
) {
	parts := []part{
		{id: "ROCKET_ENGINE", leadTime: 30, minOrder: 1, multiple: 1, manufactured: true},
		{id: "TURBOPUMP", leadTime: 20, minOrder: 1, multiple: 1, manufactured: true},
		{id: "COMBUSTION_CHAMBER", leadTime: 15, minOrder: 1, multiple: 1},
		{id: "NOZZLE", leadTime: 10, minOrder: 1, multiple: 1},
		{id: "IMPELLER", leadTime: 7, minOrder: 10, multiple: 1},
		{id: "BEARING", leadTime: 5, minOrder: 1, multiple: 25},
	}
	for _, p := range parts {
		item, err := entities.NewItem(entities.ItemID(p.id), p.id, p.id, "EA", p.leadTime)
		if err != nil {
			panic(err)
		}
		item.MinOrderQty = decimal.NewFromInt(p.minOrder)
		item.OrderMultiple = decimal.NewFromInt(p.multiple)
		if p.manufactured {
			item.ProcurementType = entities.ProcurementManufacture
			item.IsProducible = true
		}
		items.AddItem(*item)
	}

	addBOM(boms, "BOM-ENGINE", "ROCKET_ENGINE", map[string]int64{"TURBOPUMP": 1, "COMBUSTION_CHAMBER": 1, "NOZZLE": 1})
	addBOM(boms, "BOM-TURBOPUMP", "TURBOPUMP", map[string]int64{"IMPELLER": 2, "BEARING": 4})

	inventory.AddBalance(entities.StockBalance{ItemID: "TURBOPUMP", Location: "FACTORY_A", Quantity: decimal.NewFromInt(2)})
	inventory.AddBalance(entities.StockBalance{ItemID: "BEARING", Location: "WAREHOUSE_1", Quantity: decimal.NewFromInt(10)})

	supply.AddPurchaseOrderLine(entities.PurchaseOrderLine{
		PurchaseOrderID: "po-nozzle-1",
		OrderNumber:     "PO-NOZZLE-1",
		Status:          entities.PurchaseOrderConfirmed,
		DeliveryDate:    today.AddDate(0, 0, 20),
		ItemID:          "NOZZLE",
		OrderedQty:      decimal.NewFromInt(4),
	})
}

func addBOM(boms *memory.BOMRepository, id, parent string, components map[string]int64) {
	lines := make([]entities.BOMLine, 0, len(components))
	for _, c := range []string{"TURBOPUMP", "COMBUSTION_CHAMBER", "NOZZLE", "IMPELLER", "BEARING"} {
		qty, ok := components[c]
		if !ok {
			continue
		}
		line, err := entities.NewBOMLine(entities.ItemID(c), decimal.NewFromInt(qty), decimal.Zero, "EA")
		if err != nil {
			panic(err)
		}
		lines = append(lines, *line)
	}
	bom, err := entities.NewBOM(id, entities.ItemID(parent), lines)
	if err != nil {
		panic(err)
	}
	boms.AddBOM(*bom)
}
