package mrp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// Supply is the current stock and the scheduled receipts of one item
type Supply struct {
	OnHand   decimal.Decimal
	Receipts map[time.Time]decimal.Decimal
}

// SupplyCollector reads on-hand stock and open purchase order receipts
type SupplyCollector struct {
	inventory repositories.InventoryRepository
	supply    repositories.SupplyRepository
}

// NewSupplyCollector creates a new supply collector
func NewSupplyCollector(inventory repositories.InventoryRepository, supply repositories.SupplyRepository) *SupplyCollector {
	return &SupplyCollector{inventory: inventory, supply: supply}
}

// Collect returns on-hand across all locations, unclamped, and receipts keyed by day
func (c *SupplyCollector) Collect(ctx context.Context, itemID entities.ItemID, window entities.Window) (Supply, error) {
	onHand, err := c.inventory.TotalOnHand(ctx, itemID)
	if err != nil {
		return Supply{}, fmt.Errorf("failed to read on-hand for %s: %w", itemID, err)
	}

	lines, err := c.supply.OpenPurchaseOrderLines(ctx, itemID, window)
	if err != nil {
		return Supply{}, fmt.Errorf("failed to read scheduled receipts for %s: %w", itemID, err)
	}

	receipts := make(map[time.Time]decimal.Decimal)
	for _, l := range lines {
		qty := l.Outstanding()
		if l.ItemID != itemID || !l.Status.IsOpen() || !window.Contains(l.DeliveryDate) || !qty.IsPositive() {
			continue
		}
		day := entities.Day(l.DeliveryDate)
		receipts[day] = receipts[day].Add(qty)
	}

	return Supply{OnHand: onHand, Receipts: receipts}, nil
}
