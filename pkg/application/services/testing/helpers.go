package testing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
)

// Fixture holds in-memory repositories and recording collaborators for tests
type Fixture struct {
	Items      *memory.ItemRepository
	BOMs       *memory.BOMRepository
	Inventory  *memory.InventoryRepository
	Demand     *memory.DemandRepository
	Supply     *memory.SupplyRepository
	Runs       *memory.RunStore
	Purchasing *memory.Purchasing
	Production *memory.Production
}

// NewFixture creates an empty fixture
func NewFixture() *Fixture {
	return &Fixture{
		Items:      memory.NewItemRepository(16),
		BOMs:       memory.NewBOMRepository(8),
		Inventory:  memory.NewInventoryRepository(),
		Demand:     memory.NewDemandRepository(),
		Supply:     memory.NewSupplyRepository(),
		Runs:       memory.NewRunStore(),
		Purchasing: memory.NewPurchasing(),
		Production: memory.NewProduction(),
	}
}

// Qty is shorthand for an integer decimal
func Qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// MustCreateItem is a helper for tests - panics on validation error
func MustCreateItem(id string, leadTime int, safetyStock, minOrderQty, orderMultiple int64, manufactured bool) *entities.Item {
	item, err := entities.NewItem(entities.ItemID(id), "", id, "EA", leadTime)
	if err != nil {
		panic(err)
	}
	item.SafetyStock = Qty(safetyStock)
	item.MinOrderQty = Qty(minOrderQty)
	item.OrderMultiple = Qty(orderMultiple)
	if manufactured {
		item.IsProducible = true
		item.ProcurementType = entities.ProcurementManufacture
	}
	return item
}

// AddItem stores an item built by MustCreateItem
func (f *Fixture) AddItem(id string, leadTime int, safetyStock, minOrderQty, orderMultiple int64, manufactured bool) *entities.Item {
	item := MustCreateItem(id, leadTime, safetyStock, minOrderQty, orderMultiple, manufactured)
	f.Items.AddItem(*item)
	return item
}

// AddBOM stores an active BOM with one line per component, in component id order
func (f *Fixture) AddBOM(id, parent string, components map[string]int64) {
	ids := make([]string, 0, len(components))
	for c := range components {
		ids = append(ids, c)
	}
	sort.Strings(ids)

	lines := make([]entities.BOMLine, 0, len(components))
	for _, c := range ids {
		line, err := entities.NewBOMLine(entities.ItemID(c), Qty(components[c]), decimal.Zero, "EA")
		if err != nil {
			panic(err)
		}
		lines = append(lines, *line)
	}
	f.BOMs.AddBOM(entities.BOM{ID: id, ItemID: entities.ItemID(parent), Status: entities.BOMActive, Lines: lines})
}

// AddStock stores an on-hand balance
func (f *Fixture) AddStock(item string, qty int64) {
	f.Inventory.AddBalance(entities.StockBalance{ItemID: entities.ItemID(item), Location: "MAIN", Quantity: Qty(qty)})
}

// AddSalesDemand stores a confirmed sales order line
func (f *Fixture) AddSalesDemand(orderID, item string, qty int64, delivery time.Time) {
	f.Demand.AddSalesOrderLine(entities.SalesOrderLine{
		SalesOrderID: orderID,
		OrderNumber:  orderID,
		Status:       entities.SalesOrderConfirmed,
		DeliveryDate: delivery,
		ItemID:       entities.ItemID(item),
		Quantity:     Qty(qty),
		DeliveredQty: decimal.Zero,
	})
}

// AddWorkOrderDemand stores a released work order material line
func (f *Fixture) AddWorkOrderDemand(orderID, item string, required, issued int64, start time.Time) {
	f.Demand.AddWorkOrderMaterialLine(entities.WorkOrderMaterialLine{
		WorkOrderID:     orderID,
		WorkOrderNumber: orderID,
		Status:          entities.WorkOrderReleased,
		PlannedStart:    start,
		ItemID:          entities.ItemID(item),
		RequiredQty:     Qty(required),
		IssuedQty:       Qty(issued),
	})
}

// AddReceipt stores a confirmed purchase order line
func (f *Fixture) AddReceipt(orderID, item string, qty int64, delivery time.Time) {
	f.Supply.AddPurchaseOrderLine(entities.PurchaseOrderLine{
		PurchaseOrderID: orderID,
		OrderNumber:     orderID,
		Status:          entities.PurchaseOrderConfirmed,
		DeliveryDate:    delivery,
		ItemID:          entities.ItemID(item),
		OrderedQty:      Qty(qty),
		ReceivedQty:     decimal.Zero,
	})
}
