package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
)

// Scenario file names inside a scenario directory. Only items.csv is required.
const (
	ItemsFile          = "items.csv"
	BOMsFile           = "boms.csv"
	StockFile          = "stock.csv"
	WorkOrdersFile     = "work_orders.csv"
	SalesOrdersFile    = "sales_orders.csv"
	PurchaseOrdersFile = "purchase_orders.csv"
	PlannerDemandFile  = "planner_demand.csv"
)

var (
	itemsHeader          = []string{"item_id", "code", "name", "unit_of_measure", "lead_time_days", "safety_stock", "min_order_qty", "order_multiple", "procurement_type", "active"}
	bomsHeader           = []string{"bom_id", "item_id", "status", "component_id", "quantity", "scrap_percent", "unit"}
	stockHeader          = []string{"item_id", "location", "quantity"}
	workOrdersHeader     = []string{"work_order_id", "work_order_number", "status", "planned_start", "item_id", "required_qty", "issued_qty"}
	salesOrdersHeader    = []string{"sales_order_id", "order_number", "status", "delivery_date", "item_id", "quantity", "delivered_qty"}
	purchaseOrdersHeader = []string{"purchase_order_id", "order_number", "status", "delivery_date", "item_id", "ordered_qty", "received_qty"}
	plannerDemandHeader  = []string{"entry_id", "item_id", "kind", "date", "quantity", "note"}
)

// Scenario is an ERP snapshot loaded into in-memory repositories
type Scenario struct {
	Items     *memory.ItemRepository
	BOMs      *memory.BOMRepository
	Inventory *memory.InventoryRepository
	Demand    *memory.DemandRepository
	Supply    *memory.SupplyRepository
}

// Loader handles loading MRP scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file present in dir
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	items, err := l.LoadItems(filepath.Join(dir, ItemsFile))
	if err != nil {
		return nil, err
	}
	s := &Scenario{
		Items:     memory.NewItemRepository(len(items)),
		BOMs:      memory.NewBOMRepository(len(items)),
		Inventory: memory.NewInventoryRepository(),
		Demand:    memory.NewDemandRepository(),
		Supply:    memory.NewSupplyRepository(),
	}
	if err := s.Items.LoadItems(items); err != nil {
		return nil, err
	}

	if boms, err := optional(l.LoadBOMs, filepath.Join(dir, BOMsFile)); err != nil {
		return nil, err
	} else if err := s.BOMs.LoadBOMs(boms); err != nil {
		return nil, err
	}

	if stock, err := optional(l.LoadStock, filepath.Join(dir, StockFile)); err != nil {
		return nil, err
	} else if err := s.Inventory.LoadBalances(stock); err != nil {
		return nil, err
	}

	wos, err := optional(l.LoadWorkOrderMaterials, filepath.Join(dir, WorkOrdersFile))
	if err != nil {
		return nil, err
	}
	for _, line := range wos {
		s.Demand.AddWorkOrderMaterialLine(line)
	}

	sos, err := optional(l.LoadSalesOrderLines, filepath.Join(dir, SalesOrdersFile))
	if err != nil {
		return nil, err
	}
	for _, line := range sos {
		s.Demand.AddSalesOrderLine(line)
	}

	entries, err := optional(l.LoadPlannerDemand, filepath.Join(dir, PlannerDemandFile))
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		s.Demand.AddPlannerDemand(entry)
	}

	pos, err := optional(l.LoadPurchaseOrderLines, filepath.Join(dir, PurchaseOrdersFile))
	if err != nil {
		return nil, err
	}
	for _, line := range pos {
		s.Supply.AddPurchaseOrderLine(line)
	}

	return s, nil
}

func optional[T any](load func(string) ([]T, error), filename string) ([]T, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return load(filename)
}

// LoadItems loads the item master from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	records, err := readRecords(filename, "items", itemsHeader)
	if err != nil {
		return nil, err
	}

	items := make([]*entities.Item, 0, len(records))
	for i, record := range records {
		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadBOMs loads BOMs from a CSV file with one row per BOM line. Rows of the
// same bom_id must agree on item_id and status.
func (l *Loader) LoadBOMs(filename string) ([]*entities.BOM, error) {
	records, err := readRecords(filename, "BOM", bomsHeader)
	if err != nil {
		return nil, err
	}

	var boms []*entities.BOM
	byID := make(map[string]*entities.BOM)
	for i, record := range records {
		bomID, itemID := record[0], entities.ItemID(record[1])
		status, err := entities.ParseBOMStatus(strings.ToLower(record[2]))
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		line, err := parseBOMLine(record[3:])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}

		bom, ok := byID[bomID]
		if !ok {
			bom, err = entities.NewBOM(bomID, itemID, nil)
			if err != nil {
				return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
			}
			bom.Status = status
			byID[bomID] = bom
			boms = append(boms, bom)
		}
		if bom.ItemID != itemID || bom.Status != status {
			return nil, fmt.Errorf("BOM CSV row %d: bom %s already declared for %s (%s)", i+2, bomID, bom.ItemID, bom.Status)
		}
		if line.ComponentID == itemID {
			return nil, fmt.Errorf("BOM CSV row %d: item %s cannot be its own component", i+2, itemID)
		}
		bom.Lines = append(bom.Lines, *line)
	}
	return boms, nil
}

// LoadStock loads on-hand balances from a CSV file
func (l *Loader) LoadStock(filename string) ([]*entities.StockBalance, error) {
	records, err := readRecords(filename, "stock", stockHeader)
	if err != nil {
		return nil, err
	}

	balances := make([]*entities.StockBalance, 0, len(records))
	for i, record := range records {
		qty, err := parseDecimal("quantity", record[2])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		balances = append(balances, &entities.StockBalance{
			ItemID:   entities.ItemID(record[0]),
			Location: record[1],
			Quantity: qty,
		})
	}
	return balances, nil
}

// LoadWorkOrderMaterials loads work order material lines from a CSV file
func (l *Loader) LoadWorkOrderMaterials(filename string) ([]entities.WorkOrderMaterialLine, error) {
	records, err := readRecords(filename, "work orders", workOrdersHeader)
	if err != nil {
		return nil, err
	}

	lines := make([]entities.WorkOrderMaterialLine, 0, len(records))
	for i, record := range records {
		start, err := parseDate("planned_start", record[3])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: %w", i+2, err)
		}
		required, err := parseDecimal("required_qty", record[5])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: %w", i+2, err)
		}
		issued, err := parseDecimal("issued_qty", record[6])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: %w", i+2, err)
		}
		lines = append(lines, entities.WorkOrderMaterialLine{
			WorkOrderID:     record[0],
			WorkOrderNumber: record[1],
			Status:          entities.WorkOrderStatus(strings.ToLower(record[2])),
			PlannedStart:    start,
			ItemID:          entities.ItemID(record[4]),
			RequiredQty:     required,
			IssuedQty:       issued,
		})
	}
	return lines, nil
}

// LoadSalesOrderLines loads sales order lines from a CSV file
func (l *Loader) LoadSalesOrderLines(filename string) ([]entities.SalesOrderLine, error) {
	records, err := readRecords(filename, "sales orders", salesOrdersHeader)
	if err != nil {
		return nil, err
	}

	lines := make([]entities.SalesOrderLine, 0, len(records))
	for i, record := range records {
		delivery, err := parseDate("delivery_date", record[3])
		if err != nil {
			return nil, fmt.Errorf("sales orders CSV row %d: %w", i+2, err)
		}
		qty, err := parseDecimal("quantity", record[5])
		if err != nil {
			return nil, fmt.Errorf("sales orders CSV row %d: %w", i+2, err)
		}
		delivered, err := parseDecimal("delivered_qty", record[6])
		if err != nil {
			return nil, fmt.Errorf("sales orders CSV row %d: %w", i+2, err)
		}
		lines = append(lines, entities.SalesOrderLine{
			SalesOrderID: record[0],
			OrderNumber:  record[1],
			Status:       entities.SalesOrderStatus(strings.ToLower(record[2])),
			DeliveryDate: delivery,
			ItemID:       entities.ItemID(record[4]),
			Quantity:     qty,
			DeliveredQty: delivered,
		})
	}
	return lines, nil
}

// LoadPurchaseOrderLines loads purchase order lines from a CSV file
func (l *Loader) LoadPurchaseOrderLines(filename string) ([]entities.PurchaseOrderLine, error) {
	records, err := readRecords(filename, "purchase orders", purchaseOrdersHeader)
	if err != nil {
		return nil, err
	}

	lines := make([]entities.PurchaseOrderLine, 0, len(records))
	for i, record := range records {
		delivery, err := parseDate("delivery_date", record[3])
		if err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: %w", i+2, err)
		}
		ordered, err := parseDecimal("ordered_qty", record[5])
		if err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: %w", i+2, err)
		}
		received, err := parseDecimal("received_qty", record[6])
		if err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: %w", i+2, err)
		}
		lines = append(lines, entities.PurchaseOrderLine{
			PurchaseOrderID: record[0],
			OrderNumber:     record[1],
			Status:          entities.PurchaseOrderStatus(strings.ToLower(record[2])),
			DeliveryDate:    delivery,
			ItemID:          entities.ItemID(record[4]),
			OrderedQty:      ordered,
			ReceivedQty:     received,
		})
	}
	return lines, nil
}

// LoadPlannerDemand loads manual and forecast entries from a CSV file
func (l *Loader) LoadPlannerDemand(filename string) ([]entities.PlannerDemand, error) {
	records, err := readRecords(filename, "planner demand", plannerDemandHeader)
	if err != nil {
		return nil, err
	}

	entries := make([]entities.PlannerDemand, 0, len(records))
	for i, record := range records {
		date, err := parseDate("date", record[3])
		if err != nil {
			return nil, fmt.Errorf("planner demand CSV row %d: %w", i+2, err)
		}
		qty, err := parseDecimal("quantity", record[4])
		if err != nil {
			return nil, fmt.Errorf("planner demand CSV row %d: %w", i+2, err)
		}
		kind := entities.DemandKind(strings.ToLower(record[2]))
		entry, err := entities.NewPlannerDemand(record[0], entities.ItemID(record[1]), kind, date, qty, record[5])
		if err != nil {
			return nil, fmt.Errorf("planner demand CSV row %d: %w", i+2, err)
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Helper functions for parsing CSV records

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (*entities.Item, error) {
	leadTimeDays, err := strconv.Atoi(record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid lead_time_days: %s", record[4])
	}

	item, err := entities.NewItem(entities.ItemID(record[0]), record[1], record[2], record[3], leadTimeDays)
	if err != nil {
		return nil, err
	}

	if item.SafetyStock, err = parseDecimalOr("safety_stock", record[5], decimal.Zero); err != nil {
		return nil, err
	}
	if item.MinOrderQty, err = parseDecimalOr("min_order_qty", record[6], decimal.NewFromInt(1)); err != nil {
		return nil, err
	}
	if item.OrderMultiple, err = parseDecimalOr("order_multiple", record[7], decimal.NewFromInt(1)); err != nil {
		return nil, err
	}
	if item.ProcurementType, err = entities.ParseProcurementType(strings.ToLower(record[8])); err != nil {
		return nil, err
	}
	item.IsProducible = item.ProcurementType == entities.ProcurementManufacture

	if record[9] != "" {
		if item.Active, err = strconv.ParseBool(record[9]); err != nil {
			return nil, fmt.Errorf("invalid active: %s", record[9])
		}
	}

	return item, item.Validate()
}

func parseBOMLine(record []string) (*entities.BOMLine, error) {
	qty, err := parseDecimal("quantity", record[1])
	if err != nil {
		return nil, err
	}
	scrap, err := parseDecimalOr("scrap_percent", record[2], decimal.Zero)
	if err != nil {
		return nil, err
	}
	return entities.NewBOMLine(entities.ItemID(record[0]), qty, scrap, record[3])
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseDecimalOr(field, s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return parseDecimal(field, s)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(entities.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", field, s)
	}
	return t, nil
}
