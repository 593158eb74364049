package mrp

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// DefaultMaxLevel bounds BOM explosion when no explicit ceiling is given
const DefaultMaxLevel = 10

// ExplodedComponent is one component requirement produced by BOM explosion
type ExplodedComponent struct {
	Level    int
	ParentID entities.ItemID
	ItemID   entities.ItemID
	Quantity decimal.Decimal
	Unit     string
}

// BOMExploder expands an item's active BOM into component requirements
type BOMExploder struct {
	bomRepo repositories.BOMRepository
}

// NewBOMExploder creates a new BOM exploder
func NewBOMExploder(bomRepo repositories.BOMRepository) *BOMExploder {
	return &BOMExploder{bomRepo: bomRepo}
}

// Explode returns the components needed for qty of itemID. Direct components are
// emitted at level 0 and sub-assemblies are expanded while level < maxLevel.
// A negative maxLevel selects DefaultMaxLevel. An item that reappears among its
// own ancestors fails with *entities.CyclicBOMError whatever the depth.
func (e *BOMExploder) Explode(
	ctx context.Context,
	itemID entities.ItemID,
	qty decimal.Decimal,
	maxLevel int,
) ([]ExplodedComponent, error) {
	if maxLevel < 0 {
		maxLevel = DefaultMaxLevel
	}

	result := make([]ExplodedComponent, 0)
	path := []entities.ItemID{itemID}
	ancestors := map[entities.ItemID]bool{itemID: true}

	bom, err := e.activeBOM(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := e.explode(ctx, bom, qty, 0, maxLevel, path, ancestors, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *BOMExploder) explode(
	ctx context.Context,
	bom *entities.BOM,
	qty decimal.Decimal,
	level, maxLevel int,
	path []entities.ItemID,
	ancestors map[entities.ItemID]bool,
	result *[]ExplodedComponent,
) error {
	if bom == nil {
		return nil
	}

	for _, line := range bom.Lines {
		if ancestors[line.ComponentID] {
			cycle := append(append([]entities.ItemID(nil), path...), line.ComponentID)
			return &entities.CyclicBOMError{Path: cycle}
		}

		childQty := line.EffectiveQuantity().Mul(qty)
		*result = append(*result, ExplodedComponent{
			Level:    level,
			ParentID: bom.ItemID,
			ItemID:   line.ComponentID,
			Quantity: childQty,
			Unit:     line.Unit,
		})

		if level >= maxLevel {
			continue
		}
		childBOM, err := e.activeBOM(ctx, line.ComponentID)
		if err != nil {
			return err
		}
		if childBOM == nil {
			continue
		}

		ancestors[line.ComponentID] = true
		err = e.explode(ctx, childBOM, childQty, level+1, maxLevel, append(path, line.ComponentID), ancestors, result)
		delete(ancestors, line.ComponentID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *BOMExploder) activeBOM(ctx context.Context, itemID entities.ItemID) (*entities.BOM, error) {
	bom, err := e.bomRepo.ActiveBOM(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active BOM for %s: %w", itemID, err)
	}
	if !bom.IsUsable() {
		return nil, nil
	}
	return bom, nil
}

// LowLevelCodes returns the deepest level at which each item appears in the BOM
// structures reachable from items. Items that are never a component get 0.
func (e *BOMExploder) LowLevelCodes(ctx context.Context, items []entities.ItemID) (map[entities.ItemID]int, error) {
	codes := make(map[entities.ItemID]int, len(items))
	boms := make(map[entities.ItemID]*entities.BOM)

	lookup := func(id entities.ItemID) (*entities.BOM, error) {
		if b, ok := boms[id]; ok {
			return b, nil
		}
		b, err := e.activeBOM(ctx, id)
		if err != nil {
			return nil, err
		}
		boms[id] = b
		return b, nil
	}

	var walk func(id entities.ItemID, depth int, path []entities.ItemID, ancestors map[entities.ItemID]bool) error
	walk = func(id entities.ItemID, depth int, path []entities.ItemID, ancestors map[entities.ItemID]bool) error {
		b, err := lookup(id)
		if err != nil || b == nil {
			return err
		}
		for _, line := range b.Lines {
			c := line.ComponentID
			if ancestors[c] {
				return &entities.CyclicBOMError{Path: append(append([]entities.ItemID(nil), path...), c)}
			}
			if code, seen := codes[c]; seen && code >= depth+1 {
				continue
			}
			codes[c] = depth + 1
			ancestors[c] = true
			err := walk(c, depth+1, append(path, c), ancestors)
			delete(ancestors, c)
			if err != nil {
				return err
			}
		}
		return nil
	}

	sorted := append([]entities.ItemID(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if _, seen := codes[id]; !seen {
			codes[id] = 0
		}
		if err := walk(id, codes[id], []entities.ItemID{id}, map[entities.ItemID]bool{id: true}); err != nil {
			return nil, err
		}
	}
	return codes, nil
}
