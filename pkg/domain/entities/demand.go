package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DemandKind names the origin of a requirement
type DemandKind string

const (
	DemandWorkOrder  DemandKind = "work_order"
	DemandSalesOrder DemandKind = "sales_order"
	DemandManual     DemandKind = "manual"
	DemandForecast   DemandKind = "forecast"
	DemandDependent  DemandKind = "dependent"
)

// DemandSource traces a requirement back to the document that caused it.
// The set of implementations is closed to this package.
type DemandSource interface {
	Kind() DemandKind
	SourceID() string
	Reference() string
	isDemandSource()
}

// WorkOrderDemand is a material requirement of an open work order
type WorkOrderDemand struct {
	WorkOrderID string
	Number      string
}

func (d WorkOrderDemand) Kind() DemandKind  { return DemandWorkOrder }
func (d WorkOrderDemand) SourceID() string  { return d.WorkOrderID }
func (d WorkOrderDemand) Reference() string { return d.Number }
func (WorkOrderDemand) isDemandSource()     {}

// SalesOrderDemand is an undelivered sales order line
type SalesOrderDemand struct {
	SalesOrderID string
	Number       string
}

func (d SalesOrderDemand) Kind() DemandKind  { return DemandSalesOrder }
func (d SalesOrderDemand) SourceID() string  { return d.SalesOrderID }
func (d SalesOrderDemand) Reference() string { return d.Number }
func (SalesOrderDemand) isDemandSource()     {}

// ManualDemand is a requirement entered by a planner
type ManualDemand struct {
	EntryID string
	Note    string
}

func (d ManualDemand) Kind() DemandKind  { return DemandManual }
func (d ManualDemand) SourceID() string  { return d.EntryID }
func (d ManualDemand) Reference() string { return d.Note }
func (ManualDemand) isDemandSource()     {}

// ForecastDemand is a forecast entry for an item
type ForecastDemand struct {
	EntryID string
	Note    string
}

func (d ForecastDemand) Kind() DemandKind  { return DemandForecast }
func (d ForecastDemand) SourceID() string  { return d.EntryID }
func (d ForecastDemand) Reference() string { return d.Note }
func (ForecastDemand) isDemandSource()     {}

// DependentDemand is component demand derived from a parent's planned order
type DependentDemand struct {
	ParentItemID ItemID
	ParentLineID string
}

func (d DependentDemand) Kind() DemandKind  { return DemandDependent }
func (d DependentDemand) SourceID() string  { return d.ParentLineID }
func (d DependentDemand) Reference() string { return string(d.ParentItemID) }
func (DependentDemand) isDemandSource()     {}

// NewDemandSource rebuilds a source from its persisted kind, id and reference.
// An empty kind yields a nil source.
func NewDemandSource(kind, id, reference string) (DemandSource, error) {
	switch DemandKind(kind) {
	case "":
		return nil, nil
	case DemandWorkOrder:
		return WorkOrderDemand{WorkOrderID: id, Number: reference}, nil
	case DemandSalesOrder:
		return SalesOrderDemand{SalesOrderID: id, Number: reference}, nil
	case DemandManual:
		return ManualDemand{EntryID: id, Note: reference}, nil
	case DemandForecast:
		return ForecastDemand{EntryID: id, Note: reference}, nil
	case DemandDependent:
		return DependentDemand{ParentItemID: ItemID(reference), ParentLineID: id}, nil
	default:
		return nil, fmt.Errorf("unknown demand kind %q", kind)
	}
}

// SourceFields flattens a source for storage; a nil source gives empty strings.
func SourceFields(s DemandSource) (kind, id, reference string) {
	if s == nil {
		return "", "", ""
	}
	return string(s.Kind()), s.SourceID(), s.Reference()
}

// Requirement is a dated gross requirement for one item
type Requirement struct {
	Date     time.Time
	Quantity decimal.Decimal
	Source   DemandSource
}

// WorkOrderStatus is the status of a work order as seen by planning
type WorkOrderStatus string

const (
	WorkOrderPlanned    WorkOrderStatus = "planned"
	WorkOrderReleased   WorkOrderStatus = "released"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

// IsOpen reports whether the work order still consumes material
func (s WorkOrderStatus) IsOpen() bool {
	switch s {
	case WorkOrderPlanned, WorkOrderReleased, WorkOrderInProgress:
		return true
	default:
		return false
	}
}

// WorkOrderMaterialLine is one component requirement of a work order
type WorkOrderMaterialLine struct {
	WorkOrderID     string
	WorkOrderNumber string
	Status          WorkOrderStatus
	PlannedStart    time.Time
	ItemID          ItemID
	RequiredQty     decimal.Decimal
	IssuedQty       decimal.Decimal
}

// Outstanding is the quantity still to be issued
func (l WorkOrderMaterialLine) Outstanding() decimal.Decimal {
	return l.RequiredQty.Sub(l.IssuedQty)
}

// SalesOrderStatus is the status of a sales order as seen by planning
type SalesOrderStatus string

const (
	SalesOrderDraft              SalesOrderStatus = "draft"
	SalesOrderConfirmed          SalesOrderStatus = "confirmed"
	SalesOrderPartiallyFulfilled SalesOrderStatus = "partially_fulfilled"
	SalesOrderFulfilled          SalesOrderStatus = "fulfilled"
	SalesOrderCancelled          SalesOrderStatus = "cancelled"
)

// IsOpen reports whether the order still has deliveries to make
func (s SalesOrderStatus) IsOpen() bool {
	return s == SalesOrderConfirmed || s == SalesOrderPartiallyFulfilled
}

// SalesOrderLine is one line of a sales order
type SalesOrderLine struct {
	SalesOrderID string
	OrderNumber  string
	Status       SalesOrderStatus
	DeliveryDate time.Time
	ItemID       ItemID
	Quantity     decimal.Decimal
	DeliveredQty decimal.Decimal
}

// Outstanding is the quantity not yet delivered
func (l SalesOrderLine) Outstanding() decimal.Decimal {
	return l.Quantity.Sub(l.DeliveredQty)
}

// PlannerDemand is a manual or forecast requirement entered by a planner
type PlannerDemand struct {
	ID       string
	ItemID   ItemID
	Kind     DemandKind
	Date     time.Time
	Quantity decimal.Decimal
	Note     string
}

// NewPlannerDemand creates a validated planner entry; kind must be manual or forecast.
func NewPlannerDemand(id string, itemID ItemID, kind DemandKind, date time.Time, qty decimal.Decimal, note string) (*PlannerDemand, error) {
	if id == "" {
		return nil, fmt.Errorf("planner demand id cannot be empty")
	}
	if itemID == "" {
		return nil, fmt.Errorf("planner demand item id cannot be empty")
	}
	if kind != DemandManual && kind != DemandForecast {
		return nil, fmt.Errorf("planner demand kind must be manual or forecast, got %q", kind)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("planner demand quantity must be positive, got %s", qty)
	}
	return &PlannerDemand{ID: id, ItemID: itemID, Kind: kind, Date: Day(date), Quantity: qty, Note: note}, nil
}

// Source returns the demand source of the entry
func (p PlannerDemand) Source() DemandSource {
	if p.Kind == DemandForecast {
		return ForecastDemand{EntryID: p.ID, Note: p.Note}
	}
	return ManualDemand{EntryID: p.ID, Note: p.Note}
}
