package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle state of an MRP run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunApplied   RunStatus = "applied"
	RunCancelled RunStatus = "cancelled"
)

// ParseRunStatus validates a persisted run status
func ParseRunStatus(s string) (RunStatus, error) {
	switch st := RunStatus(s); st {
	case RunPending, RunCompleted, RunApplied, RunCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown run status %q", s)
	}
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunCompleted || next == RunCancelled
	case RunCompleted:
		return next == RunApplied || next == RunCancelled
	default:
		return false
	}
}

// RunNumberPrefix starts every run number
const RunNumberPrefix = "MRP-"

// FormatRunNumber renders MRP-YYYYMMDD-NNN
func FormatRunNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%s-%03d", RunNumberPrefix, Day(day).Format("20060102"), seq)
}

// RunNumberDayPrefix is the shared prefix of all run numbers of one day
func RunNumberDayPrefix(day time.Time) string {
	return RunNumberPrefix + Day(day).Format("20060102") + "-"
}

// Run is one auditable execution of the planning engine
type Run struct {
	ID                    string
	RunNumber             string
	RunDate               time.Time
	HorizonDays           int
	ConsiderSafetyStock   bool
	IncludeWorkOrders     bool
	IncludeSalesOrders    bool
	IncludePlannerDemand  bool
	DeriveComponentDemand bool
	ItemFilter            ItemID
	Status                RunStatus
	ItemsProcessed        int
	ItemsWithShortage     int
	SuggestionsProduced   int
	CreatedAt             time.Time
	CompletedAt           *time.Time
	CancelledAt           *time.Time
	Note                  string
}

// Transition moves the run to next, stamping completion and cancellation times
func (r *Run) Transition(next RunStatus, at time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return &ValidationError{
			Message: fmt.Sprintf("run %s cannot move from %s to %s", r.RunNumber, r.Status, next),
			Err:     ErrInvalidTransition,
		}
	}
	r.Status = next
	switch next {
	case RunCompleted:
		r.CompletedAt = &at
	case RunCancelled:
		r.CancelledAt = &at
	}
	return nil
}

// Window is the planning window of the run
func (r *Run) Window() Window {
	return NewWindow(r.RunDate, r.HorizonDays)
}

// RunLine is one dated netting result for one item within a run
type RunLine struct {
	ID                  string
	RunID               string
	Sequence            int
	ItemID              ItemID
	RequirementDate     time.Time
	GrossRequirement    decimal.Decimal
	ScheduledReceipts   decimal.Decimal
	ProjectedOnHand     decimal.Decimal
	NetRequirement      decimal.Decimal
	Source              DemandSource
	SuggestionKind      SuggestionKind
	SuggestedQty        decimal.Decimal
	SuggestedDate       time.Time
	PlannedOrderReceipt decimal.Decimal
	PlannedOrderRelease decimal.Decimal
	Applied             bool
	AppliedAt           *time.Time
	AppliedOrderKind    AppliedOrderKind
	AppliedOrderID      string
}

// HasSuggestion reports whether the line proposes an order
func (l *RunLine) HasSuggestion() bool {
	return l.SuggestionKind != SuggestionNone
}

// HasShortage reports whether the line needs replenishment
func (l *RunLine) HasShortage() bool {
	return l.NetRequirement.IsPositive()
}

// RunCounters derives the aggregate counters of a run from its lines
func RunCounters(lines []RunLine) (itemsWithShortage, suggestions int) {
	short := make(map[ItemID]struct{})
	for i := range lines {
		if lines[i].HasShortage() {
			short[lines[i].ItemID] = struct{}{}
		}
		if lines[i].HasSuggestion() {
			suggestions++
		}
	}
	return len(short), suggestions
}

// RunFilter narrows ListRuns; zero values match everything
type RunFilter struct {
	Status RunStatus
	Limit  int
}
