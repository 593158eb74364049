package events

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// AllEvents subscribes a handler to every event type
const AllEvents = "*"

const (
	RunCompletedEvent = "run.completed"
	RunCancelledEvent = "run.cancelled"
	RunAppliedEvent   = "run.applied"
	RunDeletedEvent   = "run.deleted"

	ShortageIdentifiedEvent = "shortage.identified"
	SuggestionAppliedEvent  = "suggestion.applied"
)

type RunCompleted struct {
	RunID               string `json:"run_id"`
	RunNumber           string `json:"run_number"`
	ItemsProcessed      int    `json:"items_processed"`
	ItemsWithShortage   int    `json:"items_with_shortage"`
	SuggestionsProduced int    `json:"suggestions_produced"`
}

type RunStatusChanged struct {
	RunID     string             `json:"run_id"`
	RunNumber string             `json:"run_number"`
	Status    entities.RunStatus `json:"status"`
}

type ShortageIdentified struct {
	RunID           string          `json:"run_id"`
	LineID          string          `json:"line_id"`
	ItemID          entities.ItemID `json:"item_id"`
	RequirementDate time.Time       `json:"requirement_date"`
	NetRequirement  decimal.Decimal `json:"net_requirement"`
}

type SuggestionApplied struct {
	RunID     string                    `json:"run_id"`
	LineID    string                    `json:"line_id"`
	ItemID    entities.ItemID           `json:"item_id"`
	OrderKind entities.AppliedOrderKind `json:"order_kind"`
	OrderID   string                    `json:"order_id"`
}

// RunStream is the stream id that carries all events of one run
func RunStream(runID string) string {
	return "run-" + runID
}

func NewRunCompletedEvent(run *entities.Run) Event {
	return NewEvent(RunCompletedEvent, RunStream(run.ID), RunCompleted{
		RunID:               run.ID,
		RunNumber:           run.RunNumber,
		ItemsProcessed:      run.ItemsProcessed,
		ItemsWithShortage:   run.ItemsWithShortage,
		SuggestionsProduced: run.SuggestionsProduced,
	})
}

func NewRunStatusChangedEvent(eventType string, run *entities.Run) Event {
	return NewEvent(eventType, RunStream(run.ID), RunStatusChanged{
		RunID:     run.ID,
		RunNumber: run.RunNumber,
		Status:    run.Status,
	})
}

func NewShortageIdentifiedEvent(line entities.RunLine) Event {
	return NewEvent(ShortageIdentifiedEvent, RunStream(line.RunID), ShortageIdentified{
		RunID:           line.RunID,
		LineID:          line.ID,
		ItemID:          line.ItemID,
		RequirementDate: line.RequirementDate,
		NetRequirement:  line.NetRequirement,
	})
}

func NewSuggestionAppliedEvent(line entities.RunLine) Event {
	return NewEvent(SuggestionAppliedEvent, RunStream(line.RunID), SuggestionApplied{
		RunID:     line.RunID,
		LineID:    line.ID,
		ItemID:    line.ItemID,
		OrderKind: line.AppliedOrderKind,
		OrderID:   line.AppliedOrderID,
	})
}
