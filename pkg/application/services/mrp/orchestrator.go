package mrp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// RunOptions are the parameters of one MRP run
type RunOptions struct {
	HorizonDays           int
	ConsiderSafetyStock   bool
	IncludeWorkOrders     bool
	IncludeSalesOrders    bool
	IncludePlannerDemand  bool
	DeriveComponentDemand bool
	ItemFilter            entities.ItemID
	Note                  string
}

// DefaultRunOptions plans 90 days of work order and sales order demand with safety stock
func DefaultRunOptions() RunOptions {
	return RunOptions{
		HorizonDays:         90,
		ConsiderSafetyStock: true,
		IncludeWorkOrders:   true,
		IncludeSalesOrders:  true,
	}
}

func (o RunOptions) validate() error {
	if o.HorizonDays <= 0 {
		return entities.NewValidationError("horizon must be positive, got %d days", o.HorizonDays)
	}
	if !o.IncludeWorkOrders && !o.IncludeSalesOrders && !o.IncludePlannerDemand {
		return entities.NewValidationError("at least one demand source must be included")
	}
	return nil
}

// Orchestrator executes MRP runs and manages their lifecycle
type Orchestrator struct {
	items     repositories.ItemRepository
	store     repositories.RunStore
	demand    *DemandCollector
	supply    *SupplyCollector
	exploder  *BOMExploder
	paths     *CriticalPathAnalyzer
	generator *SuggestionGenerator
	events    events.EventStore
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string
}

func newOrchestrator(d Dependencies) *Orchestrator {
	exploder := NewBOMExploder(d.BOMs)
	return &Orchestrator{
		items:     d.Items,
		store:     d.Runs,
		demand:    NewDemandCollector(d.Demand),
		supply:    NewSupplyCollector(d.Inventory, d.Supply),
		exploder:  exploder,
		paths:     NewCriticalPathAnalyzer(d.Items, d.BOMs, d.Inventory),
		generator: NewSuggestionGenerator(exploder, d.Now),
		events:    d.Events,
		logger:    d.Logger.With("service", "mrp.orchestrator"),
		now:       d.Now,
		newID:     d.NewID,
	}
}

// RunMRP plans every active item, or only opts.ItemFilter, and persists the run
// with its lines in one transaction. Any failure leaves nothing behind.
func (o *Orchestrator) RunMRP(ctx context.Context, opts RunOptions) (*dto.RunReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	now := o.now().UTC()
	run := &entities.Run{
		ID:                    o.newID(),
		RunDate:               entities.Day(now),
		HorizonDays:           opts.HorizonDays,
		ConsiderSafetyStock:   opts.ConsiderSafetyStock,
		IncludeWorkOrders:     opts.IncludeWorkOrders,
		IncludeSalesOrders:    opts.IncludeSalesOrders,
		IncludePlannerDemand:  opts.IncludePlannerDemand,
		DeriveComponentDemand: opts.DeriveComponentDemand,
		ItemFilter:            opts.ItemFilter,
		Status:                entities.RunPending,
		CreatedAt:             now,
		Note:                  opts.Note,
	}

	var lines []entities.RunLine
	err := o.store.WithTx(ctx, func(tx repositories.RunTx) error {
		number, err := tx.NextRunNumber(ctx, run.RunDate)
		if err != nil {
			return fmt.Errorf("failed to assign run number: %w", err)
		}
		run.RunNumber = number
		if err := tx.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}

		items, err := o.planItems(ctx, opts)
		if err != nil {
			return err
		}
		lines, err = o.plan(ctx, run, items)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, lines); err != nil {
			return fmt.Errorf("failed to insert run lines: %w", err)
		}

		run.ItemsProcessed = len(items)
		run.ItemsWithShortage, run.SuggestionsProduced = entities.RunCounters(lines)
		if err := run.Transition(entities.RunCompleted, o.now().UTC()); err != nil {
			return err
		}
		return tx.UpdateRun(ctx, run)
	})
	if err != nil {
		o.logger.Error("mrp run failed", "error", err)
		return nil, fmt.Errorf("mrp run failed: %w", err)
	}

	o.logger.Info("mrp run completed",
		"run", run.RunNumber,
		"items", run.ItemsProcessed,
		"shortages", run.ItemsWithShortage,
		"suggestions", run.SuggestionsProduced,
	)

	evts := []events.Event{events.NewRunCompletedEvent(run)}
	for _, l := range lines {
		if l.HasShortage() {
			evts = append(evts, events.NewShortageIdentifiedEvent(l))
		}
	}

	return &dto.RunReport{
		Run:              run,
		Lines:            lines,
		SideEffectErrors: publish(o.events, o.logger, evts...),
	}, nil
}

func (o *Orchestrator) planItems(ctx context.Context, opts RunOptions) ([]*entities.Item, error) {
	var items []*entities.Item
	if opts.ItemFilter != "" {
		item, err := o.items.GetItem(ctx, opts.ItemFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to get item %s: %w", opts.ItemFilter, err)
		}
		items = []*entities.Item{item}
	} else {
		all, err := o.items.ListItems(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list items: %w", err)
		}
		items = all
	}

	if !opts.DeriveComponentDemand {
		sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		return items, nil
	}

	ids := make([]entities.ItemID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	codes, err := o.exploder.LowLevelCodes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to compute low-level codes: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if codes[items[i].ID] != codes[items[j].ID] {
			return codes[items[i].ID] < codes[items[j].ID]
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (o *Orchestrator) plan(ctx context.Context, run *entities.Run, items []*entities.Item) ([]entities.RunLine, error) {
	window := run.Window()
	opts := DemandOptions{
		IncludeWorkOrders:    run.IncludeWorkOrders,
		IncludeSalesOrders:   run.IncludeSalesOrders,
		IncludePlannerDemand: run.IncludePlannerDemand,
	}

	lines := make([]entities.RunLine, 0)
	derived := make(map[entities.ItemID][]entities.Requirement)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		requirements, err := o.demand.Collect(ctx, item.ID, window, opts)
		if err != nil {
			return nil, err
		}
		requirements = append(requirements, derived[item.ID]...)

		supply, err := o.supply.Collect(ctx, item.ID, window)
		if err != nil {
			return nil, err
		}

		floor := decimal.Zero
		if run.ConsiderSafetyStock {
			floor = item.SafetyStock
		}

		for _, nl := range Net(requirements, supply, floor) {
			line := entities.RunLine{
				ID:                o.newID(),
				RunID:             run.ID,
				Sequence:          len(lines) + 1,
				ItemID:            item.ID,
				RequirementDate:   nl.Date,
				GrossRequirement:  nl.Gross,
				ScheduledReceipts: nl.ScheduledReceipts,
				ProjectedOnHand:   nl.ProjectedOnHand,
				NetRequirement:    nl.Net,
				Source:            nl.Source,
			}
			o.generator.Suggest(item, &line)

			if run.DeriveComponentDemand {
				deps, err := o.generator.DependentRequirements(ctx, line)
				if err != nil {
					return nil, err
				}
				for id, reqs := range deps {
					derived[id] = append(derived[id], reqs...)
				}
			}
			lines = append(lines, line)
		}

		o.logger.Debug("item planned", "item", item.ID, "requirements", len(requirements))
	}

	return lines, nil
}

// CancelRun moves a pending or completed run to cancelled
func (o *Orchestrator) CancelRun(ctx context.Context, runID string) (*entities.Run, error) {
	run, err := o.transition(ctx, runID, entities.RunCancelled, nil)
	if err != nil {
		return nil, err
	}
	publish(o.events, o.logger, events.NewRunStatusChangedEvent(events.RunCancelledEvent, run))
	return run, nil
}

// MarkRunApplied moves a completed run to applied once every suggestion line is applied
func (o *Orchestrator) MarkRunApplied(ctx context.Context, runID string) (*entities.Run, error) {
	run, err := o.transition(ctx, runID, entities.RunApplied, func(tx repositories.RunTx, run *entities.Run) error {
		lines, err := tx.ListLines(ctx, run.ID)
		if err != nil {
			return err
		}
		pending := 0
		for _, l := range lines {
			if l.HasSuggestion() && !l.Applied {
				pending++
			}
		}
		if pending > 0 {
			return entities.NewValidationError("run %s still has %d unapplied suggestions", run.RunNumber, pending)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(o.events, o.logger, events.NewRunStatusChangedEvent(events.RunAppliedEvent, run))
	return run, nil
}

func (o *Orchestrator) transition(
	ctx context.Context,
	runID string,
	next entities.RunStatus,
	guard func(tx repositories.RunTx, run *entities.Run) error,
) (*entities.Run, error) {
	if runID == "" {
		return nil, entities.NewValidationError("run id is required")
	}

	var run *entities.Run
	err := o.store.WithTx(ctx, func(tx repositories.RunTx) error {
		var err error
		run, err = tx.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(tx, run); err != nil {
				return err
			}
		}
		if err := run.Transition(next, o.now().UTC()); err != nil {
			return err
		}
		return tx.UpdateRun(ctx, run)
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("run status changed", "run", run.RunNumber, "status", run.Status)
	return run, nil
}

// DeleteRun removes a run together with its lines
func (o *Orchestrator) DeleteRun(ctx context.Context, runID string) error {
	if runID == "" {
		return entities.NewValidationError("run id is required")
	}

	var run *entities.Run
	err := o.store.WithTx(ctx, func(tx repositories.RunTx) error {
		var err error
		run, err = tx.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		return tx.DeleteRun(ctx, runID)
	})
	if err != nil {
		return err
	}

	o.logger.Info("run deleted", "run", run.RunNumber)
	publish(o.events, o.logger, events.NewRunStatusChangedEvent(events.RunDeletedEvent, run))
	return nil
}

// GetRun returns a run by id
func (o *Orchestrator) GetRun(ctx context.Context, runID string) (*entities.Run, error) {
	if runID == "" {
		return nil, entities.NewValidationError("run id is required")
	}
	return o.store.GetRun(ctx, runID)
}

// ListRuns returns runs, newest first
func (o *Orchestrator) ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error) {
	return o.store.ListRuns(ctx, filter)
}

// RunLines returns the lines of an existing run in sequence order
func (o *Orchestrator) RunLines(ctx context.Context, runID string) ([]entities.RunLine, error) {
	if _, err := o.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return o.store.ListLines(ctx, runID)
}

// ExplodeItem returns the component requirements for qty units of an existing
// item, expanded down to maxLevel.
func (o *Orchestrator) ExplodeItem(ctx context.Context, itemID entities.ItemID, qty decimal.Decimal, maxLevel int) ([]ExplodedComponent, error) {
	if itemID == "" {
		return nil, entities.NewValidationError("item id is required")
	}
	if !qty.IsPositive() {
		return nil, entities.NewValidationError("quantity must be positive, got %s", qty)
	}
	if _, err := o.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return o.exploder.Explode(ctx, itemID, qty, maxLevel)
}

// AnalyzeCriticalPath ranks the lead-time chains below itemID for qty units
func (o *Orchestrator) AnalyzeCriticalPath(ctx context.Context, itemID entities.ItemID, qty decimal.Decimal, topN int) (*CriticalPathAnalysis, error) {
	if itemID == "" {
		return nil, entities.NewValidationError("item id is required")
	}
	if !qty.IsPositive() {
		return nil, entities.NewValidationError("quantity must be positive, got %s", qty)
	}
	if _, err := o.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return o.paths.Analyze(ctx, itemID, qty, topN)
}
