package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SuggestionKind is the replenishment action proposed for a shortage
type SuggestionKind int

const (
	SuggestionNone SuggestionKind = iota
	SuggestionPurchase
	SuggestionManufacture
)

// String method for SuggestionKind enum
func (k SuggestionKind) String() string {
	switch k {
	case SuggestionNone:
		return "none"
	case SuggestionPurchase:
		return "purchase"
	case SuggestionManufacture:
		return "manufacture"
	default:
		return "unknown"
	}
}

// ParseSuggestionKind is the inverse of SuggestionKind.String
func ParseSuggestionKind(s string) (SuggestionKind, error) {
	switch s {
	case "", "none":
		return SuggestionNone, nil
	case "purchase":
		return SuggestionPurchase, nil
	case "manufacture":
		return SuggestionManufacture, nil
	default:
		return SuggestionNone, fmt.Errorf("unknown suggestion kind %q", s)
	}
}

// AppliedOrderKind records what applying a suggestion produced
type AppliedOrderKind string

const (
	AppliedNone                AppliedOrderKind = ""
	AppliedPurchaseRequisition AppliedOrderKind = "purchase_requisition"
	AppliedWorkOrder           AppliedOrderKind = "work_order"
	AppliedAcknowledged        AppliedOrderKind = "acknowledged"
)

// RequisitionLine is one line of a purchase requisition created from suggestions
type RequisitionLine struct {
	ItemID   ItemID
	Quantity decimal.Decimal
	NeededBy time.Time
	Note     string
}

// NewRequisitionLine creates a validated RequisitionLine
func NewRequisitionLine(itemID ItemID, qty decimal.Decimal, neededBy time.Time, note string) (*RequisitionLine, error) {
	if itemID == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", qty)
	}
	if neededBy.IsZero() {
		return nil, fmt.Errorf("needed-by date cannot be empty")
	}
	return &RequisitionLine{ItemID: itemID, Quantity: qty, NeededBy: Day(neededBy), Note: note}, nil
}

// WorkOrderRequest asks production to create a work order
type WorkOrderRequest struct {
	ItemID       ItemID
	BOMID        string
	Quantity     decimal.Decimal
	PlannedStart time.Time
	Note         string
}

// NewWorkOrderRequest creates a validated WorkOrderRequest
func NewWorkOrderRequest(itemID ItemID, bomID string, qty decimal.Decimal, plannedStart time.Time, note string) (*WorkOrderRequest, error) {
	if itemID == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", qty)
	}
	if plannedStart.IsZero() {
		return nil, fmt.Errorf("planned start cannot be empty")
	}
	return &WorkOrderRequest{
		ItemID:       itemID,
		BOMID:        bomID,
		Quantity:     qty,
		PlannedStart: Day(plannedStart),
		Note:         note,
	}, nil
}
