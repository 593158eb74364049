package mrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// Applier turns run line suggestions into requisitions and work orders exactly once
type Applier struct {
	store      repositories.RunStore
	boms       repositories.BOMRepository
	purchasing repositories.Purchasing
	production repositories.Production
	events     events.EventStore
	logger     *logger.Logger
	now        func() time.Time
}

func newApplier(d Dependencies) *Applier {
	return &Applier{
		store:      d.Runs,
		boms:       d.BOMs,
		purchasing: d.Purchasing,
		production: d.Production,
		events:     d.Events,
		logger:     d.Logger.With("service", "mrp.applier"),
		now:        d.Now,
	}
}

// ApplySuggestion applies one line. With autoCreate the purchasing or production
// system creates the order; without it the line is only acknowledged. The claim
// and the external call share one transaction, so a failed call leaves the line
// unapplied.
func (a *Applier) ApplySuggestion(ctx context.Context, lineID string, autoCreate bool) (*dto.ApplyResult, error) {
	if lineID == "" {
		return nil, entities.NewValidationError("line id is required")
	}

	var applied entities.RunLine
	err := a.store.WithTx(ctx, func(tx repositories.RunTx) error {
		line, err := tx.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if !line.HasSuggestion() {
			return entities.NewValidationError("run line %s has no suggestion", lineID)
		}
		if line.Applied {
			return &entities.AlreadyAppliedError{LineID: lineID}
		}
		run, err := tx.GetRun(ctx, line.RunID)
		if err != nil {
			return err
		}
		if run.Status != entities.RunCompleted {
			return entities.NewValidationError("run %s is %s, only completed runs can be applied", run.RunNumber, run.Status)
		}

		at := a.now().UTC()
		if err := tx.ClaimLine(ctx, lineID, at); err != nil {
			return err
		}

		kind, orderID, err := a.createOrder(ctx, run, *line, autoCreate)
		if err != nil {
			return err
		}
		if err := tx.RecordAppliedOrder(ctx, lineID, kind, orderID); err != nil {
			return err
		}

		applied = *line
		applied.Applied = true
		applied.AppliedAt = &at
		applied.AppliedOrderKind = kind
		applied.AppliedOrderID = orderID
		return nil
	})
	if err != nil {
		a.logger.Warn("apply suggestion failed", "line", lineID, "error", err)
		return nil, err
	}

	a.logger.Info("suggestion applied", "line", lineID, "item", applied.ItemID, "kind", applied.AppliedOrderKind, "order", applied.AppliedOrderID)
	publish(a.events, a.logger, events.NewSuggestionAppliedEvent(applied))
	return resultFor(applied), nil
}

func (a *Applier) createOrder(ctx context.Context, run *entities.Run, line entities.RunLine, autoCreate bool) (entities.AppliedOrderKind, string, error) {
	if !autoCreate {
		return entities.AppliedAcknowledged, "", nil
	}

	note := lineNote(run, line)
	switch line.SuggestionKind {
	case entities.SuggestionPurchase:
		id, err := a.requisition(ctx, []entities.RunLine{line}, note)
		return entities.AppliedPurchaseRequisition, id, err
	case entities.SuggestionManufacture:
		id, err := a.workOrder(ctx, line, note)
		return entities.AppliedWorkOrder, id, err
	default:
		return entities.AppliedNone, "", entities.NewValidationError("run line %s has no suggestion", line.ID)
	}
}

func (a *Applier) requisition(ctx context.Context, lines []entities.RunLine, note string) (string, error) {
	if a.purchasing == nil {
		return "", &entities.ExternalServiceError{Service: "purchasing", Err: errors.New("not configured")}
	}

	reqLines := make([]entities.RequisitionLine, 0, len(lines))
	for _, l := range lines {
		rl, err := entities.NewRequisitionLine(l.ItemID, l.SuggestedQty, l.SuggestedDate, fmt.Sprintf("line %d", l.Sequence))
		if err != nil {
			return "", &entities.ValidationError{Message: fmt.Sprintf("run line %s", l.ID), Err: err}
		}
		reqLines = append(reqLines, *rl)
	}

	id, err := a.purchasing.CreatePurchaseRequisition(ctx, reqLines, note)
	if err != nil {
		return "", &entities.ExternalServiceError{Service: "purchasing", Err: err}
	}
	return id, nil
}

func (a *Applier) workOrder(ctx context.Context, line entities.RunLine, note string) (string, error) {
	if a.production == nil {
		return "", &entities.ExternalServiceError{Service: "production", Err: errors.New("not configured")}
	}

	bomID := ""
	bom, err := a.boms.ActiveBOM(ctx, line.ItemID)
	if err != nil {
		return "", fmt.Errorf("failed to get active BOM for %s: %w", line.ItemID, err)
	}
	if bom.IsUsable() {
		bomID = bom.ID
	}

	req, err := entities.NewWorkOrderRequest(line.ItemID, bomID, line.SuggestedQty, line.SuggestedDate, note)
	if err != nil {
		return "", &entities.ValidationError{Message: fmt.Sprintf("run line %s", line.ID), Err: err}
	}

	id, err := a.production.CreateWorkOrder(ctx, *req)
	if err != nil {
		return "", &entities.ExternalServiceError{Service: "production", Err: err}
	}
	return id, nil
}

// ApplyAllSuggestions applies every unapplied suggestion of a completed run.
// Purchase lines share one requisition; manufacture lines get one work order
// each. Failures are collected in the summary and do not stop other lines.
func (a *Applier) ApplyAllSuggestions(ctx context.Context, runID string, autoCreate bool) (*dto.ApplySummary, error) {
	if runID == "" {
		return nil, entities.NewValidationError("run id is required")
	}

	run, err := a.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != entities.RunCompleted {
		return nil, entities.NewValidationError("run %s is %s, only completed runs can be applied", run.RunNumber, run.Status)
	}

	lines, err := a.store.ListLines(ctx, runID)
	if err != nil {
		return nil, err
	}

	summary := &dto.ApplySummary{
		RunID:   runID,
		Applied: make([]dto.ApplyResult, 0),
		Errors:  make([]string, 0),
	}

	var purchases, others []entities.RunLine
	for _, l := range lines {
		if !l.HasSuggestion() || l.Applied {
			continue
		}
		if autoCreate && l.SuggestionKind == entities.SuggestionPurchase {
			purchases = append(purchases, l)
			continue
		}
		others = append(others, l)
	}

	if len(purchases) > 0 {
		a.applyPurchaseBatch(ctx, run, purchases, summary)
	}

	for _, l := range others {
		res, err := a.ApplySuggestion(ctx, l.ID, autoCreate)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d (%s): %v", l.Sequence, l.ItemID, err))
			continue
		}
		switch res.OrderKind {
		case entities.AppliedWorkOrder:
			summary.WorkOrders++
		case entities.AppliedAcknowledged:
			summary.Acknowledged++
		case entities.AppliedPurchaseRequisition:
			summary.PurchaseRequisitions++
		}
		summary.Applied = append(summary.Applied, *res)
	}

	a.logger.Info("run suggestions applied",
		"run", run.RunNumber,
		"requisitions", summary.PurchaseRequisitions,
		"work_orders", summary.WorkOrders,
		"acknowledged", summary.Acknowledged,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (a *Applier) applyPurchaseBatch(ctx context.Context, run *entities.Run, lines []entities.RunLine, summary *dto.ApplySummary) {
	var claimed []entities.RunLine
	var requisitionID string

	err := a.store.WithTx(ctx, func(tx repositories.RunTx) error {
		claimed = claimed[:0]
		at := a.now().UTC()
		for _, l := range lines {
			if err := tx.ClaimLine(ctx, l.ID, at); err != nil {
				if errors.Is(err, entities.ErrAlreadyApplied) {
					continue
				}
				return err
			}
			l.Applied = true
			l.AppliedAt = &at
			claimed = append(claimed, l)
		}
		if len(claimed) == 0 {
			return nil
		}

		id, err := a.requisition(ctx, claimed, fmt.Sprintf("%s: %d purchase suggestions", run.RunNumber, len(claimed)))
		if err != nil {
			return err
		}
		requisitionID = id
		for i := range claimed {
			if err := tx.RecordAppliedOrder(ctx, claimed[i].ID, entities.AppliedPurchaseRequisition, id); err != nil {
				return err
			}
			claimed[i].AppliedOrderKind = entities.AppliedPurchaseRequisition
			claimed[i].AppliedOrderID = id
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("purchase requisition failed", "run", run.RunNumber, "lines", len(lines), "error", err)
		summary.Errors = append(summary.Errors, fmt.Sprintf("purchase requisition for %d lines: %v", len(lines), err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	summary.PurchaseRequisitions++
	evts := make([]events.Event, 0, len(claimed))
	for _, l := range claimed {
		summary.Applied = append(summary.Applied, *resultFor(l))
		evts = append(evts, events.NewSuggestionAppliedEvent(l))
	}
	a.logger.Info("purchase requisition created", "run", run.RunNumber, "requisition", requisitionID, "lines", len(claimed))
	publish(a.events, a.logger, evts...)
}

func lineNote(run *entities.Run, line entities.RunLine) string {
	return fmt.Sprintf("%s line %d", run.RunNumber, line.Sequence)
}

func resultFor(line entities.RunLine) *dto.ApplyResult {
	return &dto.ApplyResult{
		LineID:    line.ID,
		ItemID:    line.ItemID,
		OrderKind: line.AppliedOrderKind,
		OrderID:   line.AppliedOrderID,
	}
}
