package gormdb

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemModel struct {
	ID              string          `gorm:"primaryKey;type:varchar(64)"`
	Code            string          `gorm:"type:varchar(64)"`
	Name            string          `gorm:"type:text"`
	UnitOfMeasure   string          `gorm:"type:varchar(16)"`
	LeadTimeDays    int             `gorm:"not null"`
	SafetyStock     decimal.Decimal `gorm:"type:numeric"`
	MinOrderQty     decimal.Decimal `gorm:"type:numeric"`
	OrderMultiple   decimal.Decimal `gorm:"type:numeric"`
	IsProducible    bool            `gorm:"not null"`
	ProcurementType string          `gorm:"type:varchar(16)"`
	Active          bool            `gorm:"not null"`
}

func (ItemModel) TableName() string { return "erp_items" }

type BOMModel struct {
	ID      string         `gorm:"primaryKey;type:varchar(64)"`
	ItemID  string         `gorm:"index;type:varchar(64)"`
	Status  string         `gorm:"type:varchar(16)"`
	Deleted bool           `gorm:"not null"`
	Lines   []BOMLineModel `gorm:"foreignKey:BOMID"`
}

func (BOMModel) TableName() string { return "erp_boms" }

type BOMLineModel struct {
	ID           uint            `gorm:"primaryKey"`
	BOMID        string          `gorm:"index;type:varchar(64)"`
	LineNo       int             `gorm:"not null"`
	ComponentID  string          `gorm:"type:varchar(64)"`
	Quantity     decimal.Decimal `gorm:"type:numeric"`
	ScrapPercent decimal.Decimal `gorm:"type:numeric"`
	Unit         string          `gorm:"type:varchar(16)"`
}

func (BOMLineModel) TableName() string { return "erp_bom_lines" }

type StockBalanceModel struct {
	ItemID   string          `gorm:"primaryKey;type:varchar(64)"`
	Location string          `gorm:"primaryKey;type:varchar(64)"`
	Quantity decimal.Decimal `gorm:"type:numeric"`
}

func (StockBalanceModel) TableName() string { return "erp_stock_balances" }

type WorkOrderMaterialModel struct {
	ID              uint            `gorm:"primaryKey"`
	WorkOrderID     string          `gorm:"index;type:varchar(64)"`
	WorkOrderNumber string          `gorm:"type:varchar(64)"`
	Status          string          `gorm:"type:varchar(16)"`
	PlannedStart    time.Time       `gorm:"not null"`
	ItemID          string          `gorm:"index;type:varchar(64)"`
	RequiredQty     decimal.Decimal `gorm:"type:numeric"`
	IssuedQty       decimal.Decimal `gorm:"type:numeric"`
}

func (WorkOrderMaterialModel) TableName() string { return "erp_work_order_materials" }

type SalesOrderLineModel struct {
	ID           uint            `gorm:"primaryKey"`
	SalesOrderID string          `gorm:"index;type:varchar(64)"`
	OrderNumber  string          `gorm:"type:varchar(64)"`
	Status       string          `gorm:"type:varchar(24)"`
	DeliveryDate time.Time       `gorm:"not null"`
	ItemID       string          `gorm:"index;type:varchar(64)"`
	Quantity     decimal.Decimal `gorm:"type:numeric"`
	DeliveredQty decimal.Decimal `gorm:"type:numeric"`
}

func (SalesOrderLineModel) TableName() string { return "erp_sales_order_lines" }

type PurchaseOrderLineModel struct {
	ID              uint            `gorm:"primaryKey"`
	PurchaseOrderID string          `gorm:"index;type:varchar(64)"`
	OrderNumber     string          `gorm:"type:varchar(64)"`
	Status          string          `gorm:"type:varchar(16)"`
	DeliveryDate    time.Time       `gorm:"not null"`
	ItemID          string          `gorm:"index;type:varchar(64)"`
	OrderedQty      decimal.Decimal `gorm:"type:numeric"`
	ReceivedQty     decimal.Decimal `gorm:"type:numeric"`
}

func (PurchaseOrderLineModel) TableName() string { return "erp_purchase_order_lines" }

type PlannerDemandModel struct {
	ID       string          `gorm:"primaryKey;type:varchar(64)"`
	ItemID   string          `gorm:"index;type:varchar(64)"`
	Kind     string          `gorm:"type:varchar(16)"`
	Date     time.Time       `gorm:"not null"`
	Quantity decimal.Decimal `gorm:"type:numeric"`
	Note     string          `gorm:"type:text"`
}

func (PlannerDemandModel) TableName() string { return "erp_planner_demand" }

type PurchaseRequisitionModel struct {
	ID        string                         `gorm:"primaryKey;type:varchar(64)"`
	Note      string                         `gorm:"type:text"`
	Status    string                         `gorm:"type:varchar(16)"`
	CreatedAt time.Time                      `gorm:"autoCreateTime"`
	Lines     []PurchaseRequisitionLineModel `gorm:"foreignKey:RequisitionID"`
}

func (PurchaseRequisitionModel) TableName() string { return "erp_purchase_requisitions" }

type PurchaseRequisitionLineModel struct {
	ID            uint            `gorm:"primaryKey"`
	RequisitionID string          `gorm:"index;type:varchar(64)"`
	LineNo        int             `gorm:"not null"`
	ItemID        string          `gorm:"type:varchar(64)"`
	Quantity      decimal.Decimal `gorm:"type:numeric"`
	NeededBy      time.Time       `gorm:"not null"`
	Note          string          `gorm:"type:text"`
}

func (PurchaseRequisitionLineModel) TableName() string { return "erp_purchase_requisition_lines" }

type WorkOrderModel struct {
	ID           string          `gorm:"primaryKey;type:varchar(64)"`
	ItemID       string          `gorm:"index;type:varchar(64)"`
	BOMID        string          `gorm:"type:varchar(64)"`
	Quantity     decimal.Decimal `gorm:"type:numeric"`
	PlannedStart time.Time       `gorm:"not null"`
	Status       string          `gorm:"type:varchar(16)"`
	Note         string          `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
}

func (WorkOrderModel) TableName() string { return "erp_work_orders" }
