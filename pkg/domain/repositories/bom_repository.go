package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	// ActiveBOM returns the single active, non-deleted BOM of an item, or nil when there is none.
	ActiveBOM(ctx context.Context, itemID entities.ItemID) (*entities.BOM, error)
	ListBOMs(ctx context.Context) ([]*entities.BOM, error)
}
