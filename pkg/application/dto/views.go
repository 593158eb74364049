package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// RunView is the wire representation of a run
type RunView struct {
	ID                    string     `json:"id"`
	RunNumber             string     `json:"run_number"`
	RunDate               string     `json:"run_date"`
	HorizonDays           int        `json:"horizon_days"`
	ConsiderSafetyStock   bool       `json:"consider_safety_stock"`
	IncludeWorkOrders     bool       `json:"include_work_orders"`
	IncludeSalesOrders    bool       `json:"include_sales_orders"`
	IncludePlannerDemand  bool       `json:"include_planner_demand"`
	DeriveComponentDemand bool       `json:"derive_component_demand"`
	ItemFilter            string     `json:"item_filter,omitempty"`
	Status                string     `json:"status"`
	ItemsProcessed        int        `json:"items_processed"`
	ItemsWithShortage     int        `json:"items_with_shortage"`
	SuggestionsProduced   int        `json:"suggestions_produced"`
	CreatedAt             time.Time  `json:"created_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	Note                  string     `json:"note,omitempty"`
}

// RunLineView is the wire representation of a run line
type RunLineView struct {
	ID                  string          `json:"id"`
	Sequence            int             `json:"sequence"`
	ItemID              string          `json:"item_id"`
	RequirementDate     string          `json:"requirement_date"`
	GrossRequirement    decimal.Decimal `json:"gross_requirement"`
	ScheduledReceipts   decimal.Decimal `json:"scheduled_receipts"`
	ProjectedOnHand     decimal.Decimal `json:"projected_on_hand"`
	NetRequirement      decimal.Decimal `json:"net_requirement"`
	SourceKind          string          `json:"source_kind,omitempty"`
	SourceID            string          `json:"source_id,omitempty"`
	SourceReference     string          `json:"source_reference,omitempty"`
	Suggestion          string          `json:"suggestion"`
	SuggestedQty        decimal.Decimal `json:"suggested_qty"`
	SuggestedDate       string          `json:"suggested_date,omitempty"`
	PlannedOrderReceipt decimal.Decimal `json:"planned_order_receipt"`
	PlannedOrderRelease decimal.Decimal `json:"planned_order_release"`
	Applied             bool            `json:"applied"`
	AppliedAt           *time.Time      `json:"applied_at,omitempty"`
	AppliedOrderKind    string          `json:"applied_order_kind,omitempty"`
	AppliedOrderID      string          `json:"applied_order_id,omitempty"`
}

// RunDetail is a run together with its lines
type RunDetail struct {
	Run              RunView       `json:"run"`
	Lines            []RunLineView `json:"lines"`
	SideEffectErrors []string      `json:"side_effect_errors,omitempty"`
}

func NewRunView(r *entities.Run) RunView {
	return RunView{
		ID:                    r.ID,
		RunNumber:             r.RunNumber,
		RunDate:               formatDay(r.RunDate),
		HorizonDays:           r.HorizonDays,
		ConsiderSafetyStock:   r.ConsiderSafetyStock,
		IncludeWorkOrders:     r.IncludeWorkOrders,
		IncludeSalesOrders:    r.IncludeSalesOrders,
		IncludePlannerDemand:  r.IncludePlannerDemand,
		DeriveComponentDemand: r.DeriveComponentDemand,
		ItemFilter:            string(r.ItemFilter),
		Status:                string(r.Status),
		ItemsProcessed:        r.ItemsProcessed,
		ItemsWithShortage:     r.ItemsWithShortage,
		SuggestionsProduced:   r.SuggestionsProduced,
		CreatedAt:             r.CreatedAt,
		CompletedAt:           r.CompletedAt,
		CancelledAt:           r.CancelledAt,
		Note:                  r.Note,
	}
}

func NewRunViews(runs []*entities.Run) []RunView {
	out := make([]RunView, 0, len(runs))
	for _, r := range runs {
		out = append(out, NewRunView(r))
	}
	return out
}

func NewRunLineView(l entities.RunLine) RunLineView {
	kind, id, ref := entities.SourceFields(l.Source)
	return RunLineView{
		ID:                  l.ID,
		Sequence:            l.Sequence,
		ItemID:              string(l.ItemID),
		RequirementDate:     formatDay(l.RequirementDate),
		GrossRequirement:    l.GrossRequirement,
		ScheduledReceipts:   l.ScheduledReceipts,
		ProjectedOnHand:     l.ProjectedOnHand,
		NetRequirement:      l.NetRequirement,
		SourceKind:          kind,
		SourceID:            id,
		SourceReference:     ref,
		Suggestion:          l.SuggestionKind.String(),
		SuggestedQty:        l.SuggestedQty,
		SuggestedDate:       formatDay(l.SuggestedDate),
		PlannedOrderReceipt: l.PlannedOrderReceipt,
		PlannedOrderRelease: l.PlannedOrderRelease,
		Applied:             l.Applied,
		AppliedAt:           l.AppliedAt,
		AppliedOrderKind:    string(l.AppliedOrderKind),
		AppliedOrderID:      l.AppliedOrderID,
	}
}

func NewRunLineViews(lines []entities.RunLine) []RunLineView {
	out := make([]RunLineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, NewRunLineView(l))
	}
	return out
}

// NewRunDetail renders a run report
func NewRunDetail(r *RunReport) RunDetail {
	return RunDetail{
		Run:              NewRunView(r.Run),
		Lines:            NewRunLineViews(r.Lines),
		SideEffectErrors: r.SideEffectErrors,
	}
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(entities.DateLayout)
}
