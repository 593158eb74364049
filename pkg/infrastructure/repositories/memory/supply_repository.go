package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// SupplyRepository provides in-memory storage of purchase order lines
type SupplyRepository struct {
	mu    sync.RWMutex
	lines []entities.PurchaseOrderLine
}

// NewSupplyRepository creates a new in-memory supply repository
func NewSupplyRepository() *SupplyRepository {
	return &SupplyRepository{lines: []entities.PurchaseOrderLine{}}
}

// Verify interface compliance
var _ repositories.SupplyRepository = (*SupplyRepository)(nil)

// AddPurchaseOrderLine adds a purchase order line
func (r *SupplyRepository) AddPurchaseOrderLine(line entities.PurchaseOrderLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// OpenPurchaseOrderLines returns the item's lines on open purchase orders delivering in the window
func (r *SupplyRepository) OpenPurchaseOrderLines(_ context.Context, itemID entities.ItemID, window entities.Window) ([]entities.PurchaseOrderLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entities.PurchaseOrderLine
	for _, l := range r.lines {
		if l.ItemID == itemID && l.Status.IsOpen() && window.Contains(l.DeliveryDate) {
			out = append(out, l)
		}
	}
	return out, nil
}
