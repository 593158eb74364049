package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// InventoryRepository provides in-memory stock balances per item and location
type InventoryRepository struct {
	mu       sync.RWMutex
	balances []entities.StockBalance
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		balances: []entities.StockBalance{},
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadBalances loads stock balances into the repository
func (r *InventoryRepository) LoadBalances(balances []*entities.StockBalance) error {
	for _, b := range balances {
		r.AddBalance(*b)
	}
	return nil
}

// AddBalance adds a stock balance to the repository
func (r *InventoryRepository) AddBalance(balance entities.StockBalance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, balance)
}

// TotalOnHand sums the item's balances across all locations
func (r *InventoryRepository) TotalOnHand(_ context.Context, itemID entities.ItemID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, b := range r.balances {
		if b.ItemID == itemID {
			total = total.Add(b.Quantity)
		}
	}
	return total, nil
}
