package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// DemandRepository provides access to open demand documents
type DemandRepository interface {
	// OpenWorkOrderMaterialLines returns material lines for the item on open work orders
	// whose planned start falls in the window.
	OpenWorkOrderMaterialLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.WorkOrderMaterialLine, error)
	// OpenSalesOrderLines returns lines for the item on open sales orders delivering in the window.
	OpenSalesOrderLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.SalesOrderLine, error)
	// PlannerDemand returns manual and forecast entries for the item in the window.
	PlannerDemand(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PlannerDemand, error)
}

// SupplyRepository provides access to scheduled receipts
type SupplyRepository interface {
	// OpenPurchaseOrderLines returns lines for the item on open purchase orders delivering in the window.
	OpenPurchaseOrderLines(ctx context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PurchaseOrderLine, error)
}
