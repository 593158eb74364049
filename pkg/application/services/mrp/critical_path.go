package mrp

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// DefaultTopPaths is the number of paths reported when none is requested
const DefaultTopPaths = 5

// CriticalPathNode is one item on a path from the analysed item to a leaf component
type CriticalPathNode struct {
	ItemID            entities.ItemID `json:"item_id"`
	Level             int             `json:"level"`
	LeadTimeDays      int             `json:"lead_time_days"`
	RequiredQty       decimal.Decimal `json:"required_qty"`
	OnHand            decimal.Decimal `json:"on_hand"`
	EffectiveLeadTime int             `json:"effective_lead_time"`
}

// CriticalPath is a chain of items whose lead times add up
type CriticalPath struct {
	Nodes             []CriticalPathNode `json:"nodes"`
	TotalLeadTime     int                `json:"total_lead_time"`
	EffectiveLeadTime int                `json:"effective_lead_time"`
	Bottleneck        entities.ItemID    `json:"bottleneck"`
}

// Items returns the item ids along the path
func (p CriticalPath) Items() []entities.ItemID {
	ids := make([]entities.ItemID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ItemID
	}
	return ids
}

// CriticalPathAnalysis ranks every path below an item by lead time
type CriticalPathAnalysis struct {
	ItemID       entities.ItemID `json:"item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	CriticalPath CriticalPath    `json:"critical_path"`
	TopPaths     []CriticalPath  `json:"top_paths"`
	TotalPaths   int             `json:"total_paths"`
}

// CriticalPathAnalyzer finds the longest lead-time chains through active BOMs.
// Stock on hand shortens a node's effective lead time in proportion to the
// share of the required quantity it covers.
type CriticalPathAnalyzer struct {
	items     repositories.ItemRepository
	boms      repositories.BOMRepository
	inventory repositories.InventoryRepository
}

// NewCriticalPathAnalyzer creates a new critical path analyzer
func NewCriticalPathAnalyzer(
	items repositories.ItemRepository,
	boms repositories.BOMRepository,
	inventory repositories.InventoryRepository,
) *CriticalPathAnalyzer {
	return &CriticalPathAnalyzer{items: items, boms: boms, inventory: inventory}
}

// Analyze returns the topN paths below itemID for qty units, longest effective
// lead time first. Ties fall back to total lead time, then path length, then
// item ids.
func (a *CriticalPathAnalyzer) Analyze(
	ctx context.Context,
	itemID entities.ItemID,
	qty decimal.Decimal,
	topN int,
) (*CriticalPathAnalysis, error) {
	if topN <= 0 {
		topN = DefaultTopPaths
	}

	paths, err := a.paths(ctx, itemID, qty, 0, []entities.ItemID{itemID}, map[entities.ItemID]bool{itemID: true})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(paths, func(i, j int) bool {
		pi, pj := paths[i], paths[j]
		if pi.EffectiveLeadTime != pj.EffectiveLeadTime {
			return pi.EffectiveLeadTime > pj.EffectiveLeadTime
		}
		if pi.TotalLeadTime != pj.TotalLeadTime {
			return pi.TotalLeadTime > pj.TotalLeadTime
		}
		if len(pi.Nodes) != len(pj.Nodes) {
			return len(pi.Nodes) > len(pj.Nodes)
		}
		return fmt.Sprint(pi.Items()) < fmt.Sprint(pj.Items())
	})

	analysis := &CriticalPathAnalysis{
		ItemID:     itemID,
		Quantity:   qty,
		TotalPaths: len(paths),
		TopPaths:   paths[:min(topN, len(paths))],
	}
	analysis.CriticalPath = paths[0]
	return analysis, nil
}

func (a *CriticalPathAnalyzer) paths(
	ctx context.Context,
	itemID entities.ItemID,
	qty decimal.Decimal,
	level int,
	path []entities.ItemID,
	ancestors map[entities.ItemID]bool,
) ([]CriticalPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := a.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}
	node, err := a.node(ctx, item, qty, level)
	if err != nil {
		return nil, err
	}

	bom, err := a.boms.ActiveBOM(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active BOM for %s: %w", itemID, err)
	}
	if !bom.IsUsable() || len(bom.Lines) == 0 {
		return []CriticalPath{{
			Nodes:             []CriticalPathNode{node},
			TotalLeadTime:     node.LeadTimeDays,
			EffectiveLeadTime: node.EffectiveLeadTime,
			Bottleneck:        itemID,
		}}, nil
	}

	var result []CriticalPath
	for _, line := range bom.Lines {
		c := line.ComponentID
		if ancestors[c] {
			return nil, &entities.CyclicBOMError{Path: append(append([]entities.ItemID(nil), path...), c)}
		}

		ancestors[c] = true
		children, err := a.paths(ctx, c, line.EffectiveQuantity().Mul(qty), level+1, append(path, c), ancestors)
		delete(ancestors, c)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			bottleneck := itemID
			if child.bottleneckLeadTime() > node.LeadTimeDays {
				bottleneck = child.Bottleneck
			}
			result = append(result, CriticalPath{
				Nodes:             append([]CriticalPathNode{node}, child.Nodes...),
				TotalLeadTime:     node.LeadTimeDays + child.TotalLeadTime,
				EffectiveLeadTime: node.EffectiveLeadTime + child.EffectiveLeadTime,
				Bottleneck:        bottleneck,
			})
		}
	}
	return result, nil
}

func (a *CriticalPathAnalyzer) node(ctx context.Context, item *entities.Item, qty decimal.Decimal, level int) (CriticalPathNode, error) {
	onHand, err := a.inventory.TotalOnHand(ctx, item.ID)
	if err != nil {
		return CriticalPathNode{}, fmt.Errorf("failed to get on-hand for %s: %w", item.ID, err)
	}
	return CriticalPathNode{
		ItemID:            item.ID,
		Level:             level,
		LeadTimeDays:      item.LeadTimeDays,
		RequiredQty:       qty,
		OnHand:            onHand,
		EffectiveLeadTime: effectiveLeadTime(item.LeadTimeDays, qty, onHand),
	}, nil
}

// effectiveLeadTime is zero when stock covers qty and shrinks linearly with partial cover
func effectiveLeadTime(leadTime int, qty, onHand decimal.Decimal) int {
	switch {
	case !onHand.IsPositive() || !qty.IsPositive():
		return leadTime
	case onHand.GreaterThanOrEqual(qty):
		return 0
	}
	uncovered := decimal.NewFromInt(1).Sub(onHand.Div(qty))
	return int(decimal.NewFromInt(int64(leadTime)).Mul(uncovered).IntPart())
}

func (p CriticalPath) bottleneckLeadTime() int {
	for _, n := range p.Nodes {
		if n.ItemID == p.Bottleneck {
			return n.LeadTimeDays
		}
	}
	return 0
}
