package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// DemandRepository provides in-memory storage of work order, sales order and planner demand
type DemandRepository struct {
	mu            sync.RWMutex
	workOrders    []entities.WorkOrderMaterialLine
	salesOrders   []entities.SalesOrderLine
	plannerDemand []entities.PlannerDemand
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		workOrders:    []entities.WorkOrderMaterialLine{},
		salesOrders:   []entities.SalesOrderLine{},
		plannerDemand: []entities.PlannerDemand{},
	}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// AddWorkOrderMaterialLine adds a work order material line
func (r *DemandRepository) AddWorkOrderMaterialLine(line entities.WorkOrderMaterialLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workOrders = append(r.workOrders, line)
}

// AddSalesOrderLine adds a sales order line
func (r *DemandRepository) AddSalesOrderLine(line entities.SalesOrderLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.salesOrders = append(r.salesOrders, line)
}

// AddPlannerDemand adds a manual or forecast entry
func (r *DemandRepository) AddPlannerDemand(entry entities.PlannerDemand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plannerDemand = append(r.plannerDemand, entry)
}

// OpenWorkOrderMaterialLines returns the item's lines on open work orders starting in the window
func (r *DemandRepository) OpenWorkOrderMaterialLines(_ context.Context, itemID entities.ItemID, window entities.Window) ([]entities.WorkOrderMaterialLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entities.WorkOrderMaterialLine
	for _, l := range r.workOrders {
		if l.ItemID == itemID && l.Status.IsOpen() && window.Contains(l.PlannedStart) {
			out = append(out, l)
		}
	}
	return out, nil
}

// OpenSalesOrderLines returns the item's lines on open sales orders delivering in the window
func (r *DemandRepository) OpenSalesOrderLines(_ context.Context, itemID entities.ItemID, window entities.Window) ([]entities.SalesOrderLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entities.SalesOrderLine
	for _, l := range r.salesOrders {
		if l.ItemID == itemID && l.Status.IsOpen() && window.Contains(l.DeliveryDate) {
			out = append(out, l)
		}
	}
	return out, nil
}

// PlannerDemand returns the item's planner entries in the window
func (r *DemandRepository) PlannerDemand(_ context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PlannerDemand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entities.PlannerDemand
	for _, p := range r.plannerDemand {
		if p.ItemID == itemID && window.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}
