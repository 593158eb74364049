package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus is the status of a purchase order as seen by planning
type PurchaseOrderStatus string

const (
	PurchaseOrderDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderSent      PurchaseOrderStatus = "sent"
	PurchaseOrderConfirmed PurchaseOrderStatus = "confirmed"
	PurchaseOrderReceived  PurchaseOrderStatus = "received"
	PurchaseOrderCancelled PurchaseOrderStatus = "cancelled"
)

// IsOpen reports whether receipts are still expected on the order
func (s PurchaseOrderStatus) IsOpen() bool {
	return s == PurchaseOrderConfirmed || s == PurchaseOrderSent
}

// PurchaseOrderLine is one line of an open purchase order
type PurchaseOrderLine struct {
	PurchaseOrderID string
	OrderNumber     string
	Status          PurchaseOrderStatus
	DeliveryDate    time.Time
	ItemID          ItemID
	OrderedQty      decimal.Decimal
	ReceivedQty     decimal.Decimal
}

// Outstanding is the quantity still to be received
func (l PurchaseOrderLine) Outstanding() decimal.Decimal {
	return l.OrderedQty.Sub(l.ReceivedQty)
}

// StockBalance is the on-hand quantity of an item at one location
type StockBalance struct {
	ItemID   ItemID
	Location string
	Quantity decimal.Decimal
}
