package dto

import (
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// RunReport contains the complete output of an MRP run
type RunReport struct {
	Run   *entities.Run
	Lines []entities.RunLine
	// SideEffectErrors lists failures that happened after the run committed,
	// such as event publication. The committed run is unaffected by them.
	SideEffectErrors []string
}

// Shortages returns the lines with a positive net requirement
func (r *RunReport) Shortages() []entities.RunLine {
	out := make([]entities.RunLine, 0)
	for _, l := range r.Lines {
		if l.HasShortage() {
			out = append(out, l)
		}
	}
	return out
}

// Suggestions returns the lines carrying a suggestion
func (r *RunReport) Suggestions() []entities.RunLine {
	out := make([]entities.RunLine, 0)
	for _, l := range r.Lines {
		if l.HasSuggestion() {
			out = append(out, l)
		}
	}
	return out
}

// ApplyResult describes the outcome of applying one suggestion
type ApplyResult struct {
	LineID    string                    `json:"line_id"`
	ItemID    entities.ItemID           `json:"item_id"`
	OrderKind entities.AppliedOrderKind `json:"order_kind"`
	OrderID   string                    `json:"order_id,omitempty"`
}

// ApplySummary describes the outcome of applying all suggestions of a run
type ApplySummary struct {
	RunID                string        `json:"run_id"`
	PurchaseRequisitions int           `json:"purchase_requisitions"`
	WorkOrders           int           `json:"work_orders"`
	Acknowledged         int           `json:"acknowledged"`
	Applied              []ApplyResult `json:"applied"`
	Errors               []string      `json:"errors"`
}
