package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

type runState struct {
	runs      map[string]entities.Run
	lines     map[string][]entities.RunLine
	lineToRun map[string]string
}

func newRunState() *runState {
	return &runState{
		runs:      make(map[string]entities.Run),
		lines:     make(map[string][]entities.RunLine),
		lineToRun: make(map[string]string),
	}
}

func (s *runState) clone() *runState {
	c := &runState{
		runs:      make(map[string]entities.Run, len(s.runs)),
		lines:     make(map[string][]entities.RunLine, len(s.lines)),
		lineToRun: make(map[string]string, len(s.lineToRun)),
	}
	for id, r := range s.runs {
		c.runs[id] = r
	}
	for id, ls := range s.lines {
		c.lines[id] = append([]entities.RunLine(nil), ls...)
	}
	for l, r := range s.lineToRun {
		c.lineToRun[l] = r
	}
	return c
}

// RunStore keeps runs in memory. WithTx works on a copy of the state under the
// write lock and swaps it in only when fn succeeds.
type RunStore struct {
	mu    sync.RWMutex
	state *runState
}

// NewRunStore creates an empty in-memory run store
func NewRunStore() *RunStore {
	return &RunStore{state: newRunState()}
}

// Verify interface compliance
var _ repositories.RunStore = (*RunStore)(nil)

func (s *RunStore) WithTx(ctx context.Context, fn func(tx repositories.RunTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &runTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, id string) (*entities.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{state: s.state}).GetRun(ctx, id)
}

func (s *RunStore) ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{state: s.state}).ListRuns(ctx, filter)
}

func (s *RunStore) GetLine(ctx context.Context, lineID string) (*entities.RunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{state: s.state}).GetLine(ctx, lineID)
}

func (s *RunStore) ListLines(ctx context.Context, runID string) ([]entities.RunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{state: s.state}).ListLines(ctx, runID)
}

type runTx struct {
	state *runState
}

func (t *runTx) GetRun(_ context.Context, id string) (*entities.Run, error) {
	r, ok := t.state.runs[id]
	if !ok {
		return nil, &entities.NotFoundError{Entity: "run", ID: id}
	}
	return &r, nil
}

func (t *runTx) ListRuns(_ context.Context, filter entities.RunFilter) ([]*entities.Run, error) {
	runs := make([]*entities.Run, 0, len(t.state.runs))
	for _, r := range t.state.runs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		r := r
		runs = append(runs, &r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunNumber > runs[j].RunNumber
	})
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

func (t *runTx) GetLine(_ context.Context, lineID string) (*entities.RunLine, error) {
	runID, ok := t.state.lineToRun[lineID]
	if !ok {
		return nil, &entities.NotFoundError{Entity: "run line", ID: lineID}
	}
	for _, l := range t.state.lines[runID] {
		if l.ID == lineID {
			return &l, nil
		}
	}
	return nil, &entities.NotFoundError{Entity: "run line", ID: lineID}
}

func (t *runTx) ListLines(_ context.Context, runID string) ([]entities.RunLine, error) {
	lines := append([]entities.RunLine(nil), t.state.lines[runID]...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Sequence < lines[j].Sequence })
	return lines, nil
}

func (t *runTx) NextRunNumber(_ context.Context, day time.Time) (string, error) {
	prefix := entities.RunNumberDayPrefix(day)
	max := 0
	for _, r := range t.state.runs {
		if !strings.HasPrefix(r.RunNumber, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(r.RunNumber, prefix))
		if err == nil && n > max {
			max = n
		}
	}
	return entities.FormatRunNumber(day, max+1), nil
}

func (t *runTx) CreateRun(_ context.Context, run *entities.Run) error {
	if _, exists := t.state.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	for _, r := range t.state.runs {
		if r.RunNumber == run.RunNumber {
			return fmt.Errorf("run number %s already exists", run.RunNumber)
		}
	}
	t.state.runs[run.ID] = *run
	return nil
}

func (t *runTx) UpdateRun(_ context.Context, run *entities.Run) error {
	if _, exists := t.state.runs[run.ID]; !exists {
		return &entities.NotFoundError{Entity: "run", ID: run.ID}
	}
	t.state.runs[run.ID] = *run
	return nil
}

func (t *runTx) InsertLines(_ context.Context, lines []entities.RunLine) error {
	for _, l := range lines {
		if _, exists := t.state.runs[l.RunID]; !exists {
			return &entities.NotFoundError{Entity: "run", ID: l.RunID}
		}
		if _, exists := t.state.lineToRun[l.ID]; exists {
			return fmt.Errorf("run line %s already exists", l.ID)
		}
		t.state.lines[l.RunID] = append(t.state.lines[l.RunID], l)
		t.state.lineToRun[l.ID] = l.RunID
	}
	return nil
}

func (t *runTx) line(lineID string) (*entities.RunLine, error) {
	runID, ok := t.state.lineToRun[lineID]
	if !ok {
		return nil, &entities.NotFoundError{Entity: "run line", ID: lineID}
	}
	lines := t.state.lines[runID]
	for i := range lines {
		if lines[i].ID == lineID {
			return &lines[i], nil
		}
	}
	return nil, &entities.NotFoundError{Entity: "run line", ID: lineID}
}

func (t *runTx) ClaimLine(_ context.Context, lineID string, at time.Time) error {
	l, err := t.line(lineID)
	if err != nil {
		return err
	}
	if l.Applied {
		return &entities.AlreadyAppliedError{LineID: lineID}
	}
	l.Applied = true
	l.AppliedAt = &at
	return nil
}

func (t *runTx) RecordAppliedOrder(_ context.Context, lineID string, kind entities.AppliedOrderKind, orderID string) error {
	l, err := t.line(lineID)
	if err != nil {
		return err
	}
	l.AppliedOrderKind = kind
	l.AppliedOrderID = orderID
	return nil
}

func (t *runTx) DeleteRun(_ context.Context, id string) error {
	if _, exists := t.state.runs[id]; !exists {
		return &entities.NotFoundError{Entity: "run", ID: id}
	}
	for _, l := range t.state.lines[id] {
		delete(t.state.lineToRun, l.ID)
	}
	delete(t.state.lines, id)
	delete(t.state.runs, id)
	return nil
}
