package mrp

import (
	"context"
	"fmt"
	"time"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// SuggestionGenerator turns shortages into purchase or manufacture suggestions
type SuggestionGenerator struct {
	exploder *BOMExploder
	now      func() time.Time
}

// NewSuggestionGenerator creates a generator; exploder may be nil when component
// demand is never derived.
func NewSuggestionGenerator(exploder *BOMExploder, now func() time.Time) *SuggestionGenerator {
	if now == nil {
		now = time.Now
	}
	return &SuggestionGenerator{exploder: exploder, now: now}
}

// Suggest fills the suggestion fields of a line with a positive net requirement.
// Lines without shortage are left with SuggestionNone.
func (g *SuggestionGenerator) Suggest(item *entities.Item, line *entities.RunLine) {
	if !line.HasShortage() {
		return
	}

	qty := LotSize(line.NetRequirement, item.MinOrderQty, item.OrderMultiple)

	today := entities.Day(g.now())
	orderDate := entities.Day(line.RequirementDate).AddDate(0, 0, -item.LeadTimeDays)
	if orderDate.Before(today) {
		orderDate = today
	}

	kind := entities.SuggestionPurchase
	if item.Manufactured() {
		kind = entities.SuggestionManufacture
	}

	line.SuggestionKind = kind
	line.SuggestedQty = qty
	line.SuggestedDate = orderDate
	line.PlannedOrderReceipt = qty
	line.PlannedOrderRelease = qty
}

// DependentRequirements explodes one BOM level below a manufacture suggestion
// and returns the component requirements dated at its release date.
func (g *SuggestionGenerator) DependentRequirements(ctx context.Context, line entities.RunLine) (map[entities.ItemID][]entities.Requirement, error) {
	switch line.SuggestionKind {
	case entities.SuggestionManufacture:
	case entities.SuggestionNone, entities.SuggestionPurchase:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown suggestion kind %v", line.SuggestionKind)
	}
	if g.exploder == nil {
		return nil, fmt.Errorf("component demand requested without a BOM exploder")
	}

	components, err := g.exploder.Explode(ctx, line.ItemID, line.SuggestedQty, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to explode %s: %w", line.ItemID, err)
	}

	result := make(map[entities.ItemID][]entities.Requirement, len(components))
	for _, c := range components {
		result[c.ItemID] = append(result[c.ItemID], entities.Requirement{
			Date:     line.SuggestedDate,
			Quantity: c.Quantity,
			Source:   entities.DependentDemand{ParentItemID: line.ItemID, ParentLineID: line.ID},
		})
	}
	return result, nil
}
