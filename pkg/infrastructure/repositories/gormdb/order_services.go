package gormdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// Status of documents created from applied suggestions
const DraftStatus = "draft"

// Purchasing writes purchase requisitions into the ERP database
type Purchasing struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPurchasing(db *gorm.DB, baseLog *logger.Logger) *Purchasing {
	return &Purchasing{db: db, log: logger.OrNop(baseLog).With("service", "gormdb.Purchasing")}
}

var _ repositories.Purchasing = (*Purchasing)(nil)

func (p *Purchasing) CreatePurchaseRequisition(ctx context.Context, lines []entities.RequisitionLine, note string) (string, error) {
	if len(lines) == 0 {
		return "", fmt.Errorf("requisition needs at least one line")
	}

	req := PurchaseRequisitionModel{
		ID:     uuid.NewString(),
		Note:   note,
		Status: DraftStatus,
		Lines:  make([]PurchaseRequisitionLineModel, 0, len(lines)),
	}
	for i, l := range lines {
		req.Lines = append(req.Lines, PurchaseRequisitionLineModel{
			LineNo:   i + 1,
			ItemID:   string(l.ItemID),
			Quantity: l.Quantity,
			NeededBy: l.NeededBy,
			Note:     l.Note,
		})
	}

	if err := p.db.WithContext(ctx).Create(&req).Error; err != nil {
		return "", fmt.Errorf("failed to create purchase requisition: %w", err)
	}
	p.log.Info("purchase requisition created", "id", req.ID, "lines", len(req.Lines))
	return req.ID, nil
}

// Production writes work orders into the ERP database
type Production struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProduction(db *gorm.DB, baseLog *logger.Logger) *Production {
	return &Production{db: db, log: logger.OrNop(baseLog).With("service", "gormdb.Production")}
}

var _ repositories.Production = (*Production)(nil)

func (p *Production) CreateWorkOrder(ctx context.Context, req entities.WorkOrderRequest) (string, error) {
	wo := WorkOrderModel{
		ID:           uuid.NewString(),
		ItemID:       string(req.ItemID),
		BOMID:        req.BOMID,
		Quantity:     req.Quantity,
		PlannedStart: req.PlannedStart,
		Status:       string(entities.WorkOrderPlanned),
		Note:         req.Note,
	}
	if err := p.db.WithContext(ctx).Create(&wo).Error; err != nil {
		return "", fmt.Errorf("failed to create work order: %w", err)
	}
	p.log.Info("work order created", "id", wo.ID, "item", wo.ItemID, "quantity", wo.Quantity.String())
	return wo.ID, nil
}
