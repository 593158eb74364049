package memory

import (
	"context"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// BOMRepository provides in-memory BOM storage indexed by parent item
type BOMRepository struct {
	mu         sync.RWMutex
	boms       []entities.BOM
	bomIndexes map[entities.ItemID][]int
}

// NewBOMRepository creates a new in-memory BOM repository
func NewBOMRepository(expectedBOMs int) *BOMRepository {
	return &BOMRepository{
		boms:       make([]entities.BOM, 0, expectedBOMs),
		bomIndexes: make(map[entities.ItemID][]int, expectedBOMs),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// LoadBOMs loads BOMs into the repository
func (r *BOMRepository) LoadBOMs(boms []*entities.BOM) error {
	for _, b := range boms {
		r.AddBOM(*b)
	}
	return nil
}

// AddBOM adds a BOM to the repository
func (r *BOMRepository) AddBOM(bom entities.BOM) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bom.Lines = append([]entities.BOMLine(nil), bom.Lines...)
	r.bomIndexes[bom.ItemID] = append(r.bomIndexes[bom.ItemID], len(r.boms))
	r.boms = append(r.boms, bom)
}

// ActiveBOM returns the first active, non-deleted BOM of the item, or nil
func (r *BOMRepository) ActiveBOM(_ context.Context, itemID entities.ItemID) (*entities.BOM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, index := range r.bomIndexes[itemID] {
		if r.boms[index].IsUsable() {
			b := r.boms[index]
			return &b, nil
		}
	}
	return nil, nil
}

// ListBOMs returns every stored BOM in insertion order
func (r *BOMRepository) ListBOMs(_ context.Context) ([]*entities.BOM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	boms := make([]*entities.BOM, 0, len(r.boms))
	for i := range r.boms {
		b := r.boms[i]
		boms = append(boms, &b)
	}
	return boms, nil
}
