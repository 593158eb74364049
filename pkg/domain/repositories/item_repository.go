package repositories

import (
	"context"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// ItemRepository provides access to item master data
type ItemRepository interface {
	// GetItem returns a *entities.NotFoundError for an unknown id.
	GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error)
	// ListItems returns items ordered by id; activeOnly drops inactive items.
	ListItems(ctx context.Context, activeOnly bool) ([]*entities.Item, error)
}
