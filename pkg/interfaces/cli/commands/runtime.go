package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/config"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/events"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/gormdb"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// Runtime is the planning engine assembled from configuration
type Runtime struct {
	Service *mrp.Service
	Items   repositories.ItemRepository
	BOMs    repositories.BOMRepository
	Events  events.EventStore

	closers []func() error
}

// Build wires the run store, the ERP source and the order services named by cfg
func Build(cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	log = logger.OrNop(log)
	rt := &Runtime{}

	runs, err := rt.openRunStore(cfg.Storage)
	if err != nil {
		rt.Close()
		return nil, err
	}

	deps := mrp.Dependencies{Runs: runs, Logger: log}
	if err := rt.openERP(cfg, log, &deps); err != nil {
		rt.Close()
		return nil, err
	}

	store := events.NewInMemoryEventStore()
	if err := store.Subscribe([]string{events.AllEvents}, events.HandlerFunc(func(e events.Event) error {
		log.Debug("event", "type", e.Type(), "stream", e.StreamID(), "version", e.Version())
		return nil
	})); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}
	deps.Events = store

	svc, err := mrp.NewService(deps)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Service = svc
	rt.Items = deps.Items
	rt.BOMs = deps.BOMs
	rt.Events = store
	return rt, nil
}

func (rt *Runtime) openRunStore(cfg config.StorageConfig) (repositories.RunStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewRunStore(), nil
	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func (rt *Runtime) openERP(cfg *config.Config, log *logger.Logger, deps *mrp.Dependencies) error {
	switch cfg.ERP.Driver {
	case config.ERPCSV:
		scenario, err := csv.NewLoader().LoadScenario(cfg.ERP.ScenarioDir)
		if err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", cfg.ERP.ScenarioDir, err)
		}
		deps.Items = scenario.Items
		deps.BOMs = scenario.BOMs
		deps.Inventory = scenario.Inventory
		deps.Demand = scenario.Demand
		deps.Supply = scenario.Supply
		deps.Purchasing = memory.NewPurchasing()
		deps.Production = memory.NewProduction()
		log.Info("scenario loaded", "dir", cfg.ERP.ScenarioDir)
		return nil

	case config.ERPPostgres, config.ERPSQLite:
		driver := gormdb.DriverPostgres
		if cfg.ERP.Driver == config.ERPSQLite {
			driver = gormdb.DriverSQLite
		}
		db, err := gormdb.Open(driver, cfg.ERP.DSN, cfg.Log.Level != "debug")
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get ERP connection pool: %w", err)
		}
		rt.closers = append(rt.closers, sqlDB.Close)

		if cfg.ERP.AutoMigrate {
			if err := gormdb.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate ERP schema: %w", err)
			}
		}

		deps.Items = gormdb.NewItemRepository(db, log)
		deps.BOMs = gormdb.NewBOMRepository(db, log)
		deps.Inventory = gormdb.NewInventoryRepository(db)
		deps.Demand = gormdb.NewDemandRepository(db)
		deps.Supply = gormdb.NewSupplyRepository(db)
		deps.Purchasing = gormdb.NewPurchasing(db, log)
		deps.Production = gormdb.NewProduction(db, log)
		log.Info("ERP database connected", "driver", driver)
		return nil

	default:
		return fmt.Errorf("unsupported ERP driver %q", cfg.ERP.Driver)
	}
}

// ValidateBOMs checks every BOM of the ERP source against the item master
func (rt *Runtime) ValidateBOMs(ctx context.Context) (*services.ValidationResult, error) {
	boms, err := rt.BOMs.ListBOMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list BOMs: %w", err)
	}
	items, err := rt.Items.ListItems(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	v := services.NewBOMValidator()
	result := v.ValidateBOMs(boms, items)
	if uniq := v.ValidateItemUniqueness(items); !uniq.Valid() {
		result.Errors = append(result.Errors, uniq.Errors...)
	}
	return result, nil
}

// Close releases the database connections opened by Build
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// RunDefaults converts the planning section into run options
func RunDefaults(cfg config.PlanningConfig) mrp.RunOptions {
	return mrp.RunOptions{
		HorizonDays:           cfg.HorizonDays,
		ConsiderSafetyStock:   cfg.ConsiderSafetyStock,
		IncludeWorkOrders:     cfg.IncludeWorkOrders,
		IncludeSalesOrders:    cfg.IncludeSalesOrders,
		IncludePlannerDemand:  cfg.IncludePlannerDemand,
		DeriveComponentDemand: cfg.DeriveComponentDemand,
	}
}
