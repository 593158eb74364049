package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// RunReader provides read access to persisted MRP runs
type RunReader interface {
	GetRun(ctx context.Context, id string) (*entities.Run, error)
	ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error)
	GetLine(ctx context.Context, lineID string) (*entities.RunLine, error)
	// ListLines returns the lines of a run ordered by sequence.
	ListLines(ctx context.Context, runID string) ([]entities.RunLine, error)
}

// RunTx is the unit of work handed to RunStore.WithTx
type RunTx interface {
	RunReader

	// NextRunNumber returns the next MRP-YYYYMMDD-NNN number for the day.
	NextRunNumber(ctx context.Context, day time.Time) (string, error)
	CreateRun(ctx context.Context, run *entities.Run) error
	UpdateRun(ctx context.Context, run *entities.Run) error
	InsertLines(ctx context.Context, lines []entities.RunLine) error
	// ClaimLine flips applied from false to true. It returns *entities.AlreadyAppliedError
	// when the line was applied before and *entities.NotFoundError when it does not exist.
	ClaimLine(ctx context.Context, lineID string, at time.Time) error
	RecordAppliedOrder(ctx context.Context, lineID string, kind entities.AppliedOrderKind, orderID string) error
	DeleteRun(ctx context.Context, id string) error
}

// RunStore persists runs and their lines
type RunStore interface {
	RunReader

	// WithTx runs fn in one transaction; any error from fn rolls back every write.
	WithTx(ctx context.Context, fn func(tx RunTx) error) error
}
