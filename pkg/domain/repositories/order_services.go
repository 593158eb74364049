package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// Purchasing creates purchase requisitions in the purchasing system
type Purchasing interface {
	CreatePurchaseRequisition(ctx context.Context, lines []entities.RequisitionLine, note string) (string, error)
}

// Production creates work orders in the production system
type Production interface {
	CreateWorkOrder(ctx context.Context, req entities.WorkOrderRequest) (string, error)
}
