// Package gormdb reads planning inputs from an ERP database and writes the
// requisitions and work orders created from applied suggestions.
package gormdb

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the ERP database with the named driver
func Open(driver, dsn string, quiet bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported ERP driver %q", driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	if quiet {
		gormLog = gormLogger.Default.LogMode(gormLogger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return db, nil
}

// AutoMigrate creates the ERP tables this package reads and writes
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ItemModel{},
		&BOMModel{},
		&BOMLineModel{},
		&StockBalanceModel{},
		&WorkOrderMaterialModel{},
		&SalesOrderLineModel{},
		&PurchaseOrderLineModel{},
		&PlannerDemandModel{},
		&PurchaseRequisitionModel{},
		&PurchaseRequisitionLineModel{},
		&WorkOrderModel{},
	)
}
