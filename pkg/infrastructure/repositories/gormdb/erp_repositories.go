package gormdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// ItemRepository reads the item master
type ItemRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepository(db *gorm.DB, baseLog *logger.Logger) *ItemRepository {
	return &ItemRepository{db: db, log: logger.OrNop(baseLog).With("repo", "ItemRepository")}
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

func (r *ItemRepository) GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error) {
	var row ItemModel
	err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &entities.NotFoundError{Entity: "item", ID: string(id)}
		}
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return row.toEntity()
}

func (r *ItemRepository) ListItems(ctx context.Context, activeOnly bool) ([]*entities.Item, error) {
	q := r.db.WithContext(ctx).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var rows []ItemModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]*entities.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			r.log.Warn("invalid item in item master", "item", row.ID, "error", err)
			return nil, fmt.Errorf("failed to list items: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (m ItemModel) toEntity() (*entities.Item, error) {
	procurement, err := entities.ParseProcurementType(m.ProcurementType)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", m.ID, err)
	}
	item := &entities.Item{
		ID:              entities.ItemID(m.ID),
		Code:            m.Code,
		Name:            m.Name,
		UnitOfMeasure:   m.UnitOfMeasure,
		LeadTimeDays:    m.LeadTimeDays,
		SafetyStock:     m.SafetyStock,
		MinOrderQty:     m.MinOrderQty,
		OrderMultiple:   m.OrderMultiple,
		IsProducible:    m.IsProducible,
		ProcurementType: procurement,
		Active:          m.Active,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// BOMRepository reads bills of materials with their lines
type BOMRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBOMRepository(db *gorm.DB, baseLog *logger.Logger) *BOMRepository {
	return &BOMRepository{db: db, log: logger.OrNop(baseLog).With("repo", "BOMRepository")}
}

var _ repositories.BOMRepository = (*BOMRepository)(nil)

func (r *BOMRepository) ActiveBOM(ctx context.Context, itemID entities.ItemID) (*entities.BOM, error) {
	var rows []BOMModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no, id") }).
		Where("item_id = ? AND status = ? AND deleted = ?", string(itemID), string(entities.BOMActive), false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active BOM for %s: %w", itemID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		r.log.Warn("item has more than one active BOM", "item", itemID, "using", rows[0].ID, "count", len(rows))
	}
	return rows[0].toEntity()
}

func (r *BOMRepository) ListBOMs(ctx context.Context) ([]*entities.BOM, error) {
	var rows []BOMModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no, id") }).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list BOMs: %w", err)
	}

	boms := make([]*entities.BOM, 0, len(rows))
	for _, row := range rows {
		bom, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		boms = append(boms, bom)
	}
	return boms, nil
}

func (m BOMModel) toEntity() (*entities.BOM, error) {
	status, err := entities.ParseBOMStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("bom %s: %w", m.ID, err)
	}
	lines := make([]entities.BOMLine, 0, len(m.Lines))
	for _, l := range m.Lines {
		line, err := entities.NewBOMLine(entities.ItemID(l.ComponentID), l.Quantity, l.ScrapPercent, l.Unit)
		if err != nil {
			return nil, fmt.Errorf("bom %s line %d: %w", m.ID, l.LineNo, err)
		}
		lines = append(lines, *line)
	}
	return &entities.BOM{
		ID:      m.ID,
		ItemID:  entities.ItemID(m.ItemID),
		Status:  status,
		Deleted: m.Deleted,
		Lines:   lines,
	}, nil
}

// InventoryRepository sums stock balances
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

func (r *InventoryRepository) TotalOnHand(ctx context.Context, itemID entities.ItemID) (decimal.Decimal, error) {
	var rows []StockBalanceModel
	if err := r.db.WithContext(ctx).Where("item_id = ?", string(itemID)).Find(&rows).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to read stock for %s: %w", itemID, err)
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity)
	}
	return total, nil
}

// DemandRepository reads open work order, sales order and planner demand
type DemandRepository struct {
	db *gorm.DB
}

func NewDemandRepository(db *gorm.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

var _ repositories.DemandRepository = (*DemandRepository)(nil)

func (r *DemandRepository) OpenWorkOrderMaterialLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.WorkOrderMaterialLine, error) {
	var rows []WorkOrderMaterialModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ?", string(itemID), []string{
			string(entities.WorkOrderPlanned),
			string(entities.WorkOrderReleased),
			string(entities.WorkOrderInProgress),
		}).
		Order("planned_start, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read work order materials for %s: %w", itemID, err)
	}

	lines := make([]entities.WorkOrderMaterialLine, 0, len(rows))
	for _, row := range rows {
		if !window.Contains(row.PlannedStart) {
			continue
		}
		lines = append(lines, entities.WorkOrderMaterialLine{
			WorkOrderID:     row.WorkOrderID,
			WorkOrderNumber: row.WorkOrderNumber,
			Status:          entities.WorkOrderStatus(row.Status),
			PlannedStart:    entities.Day(row.PlannedStart),
			ItemID:          entities.ItemID(row.ItemID),
			RequiredQty:     row.RequiredQty,
			IssuedQty:       row.IssuedQty,
		})
	}
	return lines, nil
}

func (r *DemandRepository) OpenSalesOrderLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.SalesOrderLine, error) {
	var rows []SalesOrderLineModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ?", string(itemID), []string{
			string(entities.SalesOrderConfirmed),
			string(entities.SalesOrderPartiallyFulfilled),
		}).
		Order("delivery_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read sales order lines for %s: %w", itemID, err)
	}

	lines := make([]entities.SalesOrderLine, 0, len(rows))
	for _, row := range rows {
		if !window.Contains(row.DeliveryDate) {
			continue
		}
		lines = append(lines, entities.SalesOrderLine{
			SalesOrderID: row.SalesOrderID,
			OrderNumber:  row.OrderNumber,
			Status:       entities.SalesOrderStatus(row.Status),
			DeliveryDate: entities.Day(row.DeliveryDate),
			ItemID:       entities.ItemID(row.ItemID),
			Quantity:     row.Quantity,
			DeliveredQty: row.DeliveredQty,
		})
	}
	return lines, nil
}

func (r *DemandRepository) PlannerDemand(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PlannerDemand, error) {
	var rows []PlannerDemandModel
	err := r.db.WithContext(ctx).
		Where("item_id = ?", string(itemID)).
		Order("date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read planner demand for %s: %w", itemID, err)
	}

	entries := make([]entities.PlannerDemand, 0, len(rows))
	for _, row := range rows {
		if !window.Contains(row.Date) {
			continue
		}
		entry, err := entities.NewPlannerDemand(row.ID, entities.ItemID(row.ItemID), entities.DemandKind(row.Kind), row.Date, row.Quantity, row.Note)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// SupplyRepository reads open purchase order lines
type SupplyRepository struct {
	db *gorm.DB
}

func NewSupplyRepository(db *gorm.DB) *SupplyRepository {
	return &SupplyRepository{db: db}
}

var _ repositories.SupplyRepository = (*SupplyRepository)(nil)

func (r *SupplyRepository) OpenPurchaseOrderLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PurchaseOrderLine, error) {
	var rows []PurchaseOrderLineModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ?", string(itemID), []string{
			string(entities.PurchaseOrderConfirmed),
			string(entities.PurchaseOrderSent),
		}).
		Order("delivery_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read purchase order lines for %s: %w", itemID, err)
	}

	lines := make([]entities.PurchaseOrderLine, 0, len(rows))
	for _, row := range rows {
		if !window.Contains(row.DeliveryDate) {
			continue
		}
		lines = append(lines, entities.PurchaseOrderLine{
			PurchaseOrderID: row.PurchaseOrderID,
			OrderNumber:     row.OrderNumber,
			Status:          entities.PurchaseOrderStatus(row.Status),
			DeliveryDate:    entities.Day(row.DeliveryDate),
			ItemID:          entities.ItemID(row.ItemID),
			OrderedQty:      row.OrderedQty,
			ReceivedQty:     row.ReceivedQty,
		})
	}
	return lines, nil
}
