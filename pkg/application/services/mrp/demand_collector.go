package mrp

import (
	"context"
	"fmt"
	"sort"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// DemandOptions selects which demand documents a collection reads
type DemandOptions struct {
	IncludeWorkOrders    bool
	IncludeSalesOrders   bool
	IncludePlannerDemand bool
}

// DemandCollector reads open demand for an item and normalizes it into requirements
type DemandCollector struct {
	repo repositories.DemandRepository
}

// NewDemandCollector creates a new demand collector
func NewDemandCollector(repo repositories.DemandRepository) *DemandCollector {
	return &DemandCollector{repo: repo}
}

// Collect returns the item's requirements in the window sorted ascending by date.
// Requirements on the same date keep their collection order and are not merged.
func (c *DemandCollector) Collect(
	ctx context.Context,
	itemID entities.ItemID,
	window entities.Window,
	opts DemandOptions,
) ([]entities.Requirement, error) {
	requirements := make([]entities.Requirement, 0)

	if opts.IncludeWorkOrders {
		lines, err := c.repo.OpenWorkOrderMaterialLines(ctx, itemID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to read work order demand for %s: %w", itemID, err)
		}
		for _, l := range lines {
			qty := l.Outstanding()
			if l.ItemID != itemID || !l.Status.IsOpen() || !window.Contains(l.PlannedStart) || !qty.IsPositive() {
				continue
			}
			requirements = append(requirements, entities.Requirement{
				Date:     entities.Day(l.PlannedStart),
				Quantity: qty,
				Source:   entities.WorkOrderDemand{WorkOrderID: l.WorkOrderID, Number: l.WorkOrderNumber},
			})
		}
	}

	if opts.IncludeSalesOrders {
		lines, err := c.repo.OpenSalesOrderLines(ctx, itemID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to read sales order demand for %s: %w", itemID, err)
		}
		for _, l := range lines {
			qty := l.Outstanding()
			if l.ItemID != itemID || !l.Status.IsOpen() || !window.Contains(l.DeliveryDate) || !qty.IsPositive() {
				continue
			}
			requirements = append(requirements, entities.Requirement{
				Date:     entities.Day(l.DeliveryDate),
				Quantity: qty,
				Source:   entities.SalesOrderDemand{SalesOrderID: l.SalesOrderID, Number: l.OrderNumber},
			})
		}
	}

	if opts.IncludePlannerDemand {
		entries, err := c.repo.PlannerDemand(ctx, itemID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to read planner demand for %s: %w", itemID, err)
		}
		for _, p := range entries {
			if p.ItemID != itemID || !window.Contains(p.Date) || !p.Quantity.IsPositive() {
				continue
			}
			requirements = append(requirements, entities.Requirement{
				Date:     entities.Day(p.Date),
				Quantity: p.Quantity,
				Source:   p.Source(),
			})
		}
	}

	sortRequirements(requirements)
	return requirements, nil
}

func sortRequirements(requirements []entities.Requirement) {
	sort.SliceStable(requirements, func(i, j int) bool {
		return requirements[i].Date.Before(requirements[j].Date)
	})
}
