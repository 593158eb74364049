package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemID identifies an item in the item master
type ItemID string

// ProcurementType says how an item is normally replenished
type ProcurementType string

const (
	ProcurementPurchase    ProcurementType = "purchase"
	ProcurementManufacture ProcurementType = "manufacture"
)

// ParseProcurementType accepts "purchase" or "manufacture"; empty defaults to purchase.
func ParseProcurementType(s string) (ProcurementType, error) {
	switch ProcurementType(s) {
	case "", ProcurementPurchase:
		return ProcurementPurchase, nil
	case ProcurementManufacture:
		return ProcurementManufacture, nil
	default:
		return "", fmt.Errorf("unknown procurement type %q", s)
	}
}

// Item represents a stocked item with its planning parameters
type Item struct {
	ID              ItemID
	Code            string
	Name            string
	UnitOfMeasure   string
	LeadTimeDays    int
	SafetyStock     decimal.Decimal
	MinOrderQty     decimal.Decimal
	OrderMultiple   decimal.Decimal
	IsProducible    bool
	ProcurementType ProcurementType
	Active          bool
}

// NewItem creates a validated, active Item with default order parameters of 1
func NewItem(id ItemID, code, name, uom string, leadTimeDays int) (*Item, error) {
	if id == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}
	if code == "" {
		code = string(id)
	}

	return &Item{
		ID:              id,
		Code:            code,
		Name:            name,
		UnitOfMeasure:   uom,
		LeadTimeDays:    leadTimeDays,
		SafetyStock:     decimal.Zero,
		MinOrderQty:     decimal.NewFromInt(1),
		OrderMultiple:   decimal.NewFromInt(1),
		ProcurementType: ProcurementPurchase,
		Active:          true,
	}, nil
}

// Manufactured reports whether shortages of this item are resolved by a work order
func (i *Item) Manufactured() bool {
	return i.IsProducible || i.ProcurementType == ProcurementManufacture
}

// Validate checks the planning parameters of an item loaded from an external source
func (i *Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	if i.LeadTimeDays < 0 {
		return fmt.Errorf("item %s: lead time cannot be negative, got %d", i.ID, i.LeadTimeDays)
	}
	if i.SafetyStock.IsNegative() {
		return fmt.Errorf("item %s: safety stock cannot be negative, got %s", i.ID, i.SafetyStock)
	}
	if i.MinOrderQty.IsNegative() {
		return fmt.Errorf("item %s: minimum order quantity cannot be negative, got %s", i.ID, i.MinOrderQty)
	}
	if i.OrderMultiple.IsNegative() {
		return fmt.Errorf("item %s: order multiple cannot be negative, got %s", i.ID, i.OrderMultiple)
	}
	return nil
}
