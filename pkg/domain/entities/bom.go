package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMStatus is the lifecycle state of a bill of materials
type BOMStatus string

const (
	BOMDraft    BOMStatus = "draft"
	BOMActive   BOMStatus = "active"
	BOMObsolete BOMStatus = "obsolete"
)

// ParseBOMStatus parses a BOM status; empty defaults to active.
func ParseBOMStatus(s string) (BOMStatus, error) {
	switch BOMStatus(s) {
	case "", BOMActive:
		return BOMActive, nil
	case BOMDraft:
		return BOMDraft, nil
	case BOMObsolete:
		return BOMObsolete, nil
	default:
		return "", fmt.Errorf("unknown BOM status %q", s)
	}
}

var hundred = decimal.NewFromInt(100)

// BOMLine represents a single component line of a Bill of Materials
type BOMLine struct {
	ComponentID  ItemID
	Quantity     decimal.Decimal
	ScrapPercent decimal.Decimal
	Unit         string
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(componentID ItemID, quantity, scrapPercent decimal.Decimal, unit string) (*BOMLine, error) {
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", quantity)
	}
	if scrapPercent.IsNegative() {
		return nil, fmt.Errorf("scrap percent cannot be negative, got %s", scrapPercent)
	}

	return &BOMLine{
		ComponentID:  componentID,
		Quantity:     quantity,
		ScrapPercent: scrapPercent,
		Unit:         unit,
	}, nil
}

// EffectiveQuantity is the quantity per parent including the scrap allowance
func (l BOMLine) EffectiveQuantity() decimal.Decimal {
	return l.Quantity.Mul(decimal.NewFromInt(1).Add(l.ScrapPercent.Div(hundred)))
}

// BOM is a bill of materials for one parent item
type BOM struct {
	ID      string
	ItemID  ItemID
	Status  BOMStatus
	Deleted bool
	Lines   []BOMLine
}

// NewBOM creates a validated, active BOM
func NewBOM(id string, itemID ItemID, lines []BOMLine) (*BOM, error) {
	if id == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if itemID == "" {
		return nil, fmt.Errorf("bom item id cannot be empty")
	}
	for _, l := range lines {
		if l.ComponentID == itemID {
			return nil, fmt.Errorf("bom %s: item %s cannot be its own component", id, itemID)
		}
	}

	return &BOM{
		ID:     id,
		ItemID: itemID,
		Status: BOMActive,
		Lines:  lines,
	}, nil
}

// IsUsable reports whether the BOM may drive planning
func (b *BOM) IsUsable() bool {
	return b != nil && b.Status == BOMActive && !b.Deleted
}
