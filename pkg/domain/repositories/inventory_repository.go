package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// InventoryRepository provides access to stock balances
type InventoryRepository interface {
	// TotalOnHand sums the item's balance across all locations. It may be negative.
	TotalOnHand(ctx context.Context, itemID entities.ItemID) (decimal.Decimal, error)
}
