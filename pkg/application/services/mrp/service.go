package mrp

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// Dependencies are the collaborators of the planning engine
type Dependencies struct {
	Items      repositories.ItemRepository
	BOMs       repositories.BOMRepository
	Inventory  repositories.InventoryRepository
	Demand     repositories.DemandRepository
	Supply     repositories.SupplyRepository
	Runs       repositories.RunStore
	Purchasing repositories.Purchasing
	Production repositories.Production

	// Events receives run and apply events after commit. Optional.
	Events events.EventStore
	// Logger defaults to a no-op logger.
	Logger *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to random UUIDs.
	NewID func() string
}

func (d *Dependencies) validate() error {
	switch {
	case d.Items == nil:
		return fmt.Errorf("item repository is required")
	case d.BOMs == nil:
		return fmt.Errorf("BOM repository is required")
	case d.Inventory == nil:
		return fmt.Errorf("inventory repository is required")
	case d.Demand == nil:
		return fmt.Errorf("demand repository is required")
	case d.Supply == nil:
		return fmt.Errorf("supply repository is required")
	case d.Runs == nil:
		return fmt.Errorf("run store is required")
	}
	return nil
}

func (d *Dependencies) withDefaults() Dependencies {
	out := *d
	out.Logger = logger.OrNop(d.Logger)
	if out.Now == nil {
		out.Now = time.Now
	}
	if out.NewID == nil {
		out.NewID = uuid.NewString
	}
	return out
}

// Service bundles the run orchestrator and the suggestion applier
type Service struct {
	*Orchestrator
	*Applier
}

// NewService validates deps and builds the planning engine
func NewService(deps Dependencies) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	d := deps.withDefaults()
	return &Service{
		Orchestrator: newOrchestrator(d),
		Applier:      newApplier(d),
	}, nil
}

func publish(store events.EventStore, log *logger.Logger, evts ...events.Event) []string {
	if store == nil {
		return nil
	}
	var failures []string
	for _, e := range evts {
		if err := store.AppendEvent(e.StreamID(), e); err != nil {
			log.Warn("event publication failed", "event", e.Type(), "stream", e.StreamID(), "error", err)
			failures = append(failures, fmt.Sprintf("publish %s: %v", e.Type(), err))
		}
	}
	return failures
}
