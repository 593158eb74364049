package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	testhelpers "github.com/vsinha/mrp-planner/pkg/application/services/testing"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

var now = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return now.AddDate(0, 0, offset)
}

type testServer struct {
	t       *testing.T
	fixture *testhelpers.Fixture
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	f := testhelpers.NewFixture()
	f.AddItem("BOLT", 2, 0, 1, 1, false)
	f.AddItem("FRAME", 4, 0, 1, 1, true)
	f.AddBOM("bom-frame", "FRAME", map[string]int64{"BOLT": 4})
	f.AddSalesDemand("SO-1", "BOLT", 10, day(10))
	f.AddSalesDemand("SO-2", "FRAME", 2, day(15))

	seq := 0
	svc, err := mrp.NewService(mrp.Dependencies{
		Items:      f.Items,
		BOMs:       f.BOMs,
		Inventory:  f.Inventory,
		Demand:     f.Demand,
		Supply:     f.Supply,
		Runs:       f.Runs,
		Purchasing: f.Purchasing,
		Production: f.Production,
		Now:        func() time.Time { return now },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	require.NoError(t, err)

	h := NewHandler(svc, mrp.DefaultRunOptions(), mrp.DefaultMaxLevel, nil)
	return &testServer{t: t, fixture: f, router: NewRouter(h, []string{"*"})}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createRun(body string) dto.RunDetail {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/runs", body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var detail dto.RunDetail
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &detail))
	return detail
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateRun_UsesDefaults(t *testing.T) {
	s := newTestServer(t)

	detail := s.createRun("")

	assert.Equal(t, "MRP-20250301-001", detail.Run.RunNumber)
	assert.Equal(t, "completed", detail.Run.Status)
	assert.Equal(t, 90, detail.Run.HorizonDays)
	assert.Equal(t, 2, detail.Run.SuggestionsProduced)
	require.Len(t, detail.Lines, 2)
	assert.Equal(t, "BOLT", detail.Lines[0].ItemID)
	assert.Equal(t, "purchase", detail.Lines[0].Suggestion)
	assert.Equal(t, "2025-03-09", detail.Lines[0].SuggestedDate)
	assert.Equal(t, "sales_order", detail.Lines[0].SourceKind)
	assert.Equal(t, "manufacture", detail.Lines[1].Suggestion)
}

func TestCreateRun_RequestOverridesDefaults(t *testing.T) {
	s := newTestServer(t)

	detail := s.createRun(`{"horizon_days": 12, "item_id": "BOLT", "note": "bolts only"}`)

	assert.Equal(t, 12, detail.Run.HorizonDays)
	assert.Equal(t, "BOLT", detail.Run.ItemFilter)
	assert.Equal(t, "bolts only", detail.Run.Note)
	require.Len(t, detail.Lines, 1)
}

func TestCreateRun_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{"horizon_days":`, http.StatusBadRequest},
		{"zero horizon", `{"horizon_days": 0}`, http.StatusBadRequest},
		{"no demand source", `{"include_work_orders": false, "include_sales_orders": false}`, http.StatusBadRequest},
		{"unknown item", `{"item_id": "MISSING"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/runs", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestListAndGetRuns(t *testing.T) {
	s := newTestServer(t)
	first := s.createRun("")
	second := s.createRun("")

	rec := s.do(http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]dto.RunView](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, second.Run.ID, runs[0].ID)

	rec = s.do(http.MethodGet, "/api/runs?limit=1&status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.RunView](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/runs?status=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/runs?limit=-1", "").Code)

	rec = s.do(http.MethodGet, "/api/runs/"+first.Run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[dto.RunDetail](t, rec)
	assert.Equal(t, "MRP-20250301-001", detail.Run.RunNumber)
	assert.Len(t, detail.Lines, 2)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/runs/nope", "").Code)
}

func TestApplyLine(t *testing.T) {
	s := newTestServer(t)
	run := s.createRun("")
	bolt := run.Lines[0]

	rec := s.do(http.MethodPost, "/api/lines/"+bolt.ID+"/apply", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dto.ApplyResult](t, rec)
	assert.Equal(t, entities.AppliedPurchaseRequisition, res.OrderKind)
	assert.Equal(t, "PR-00001", res.OrderID)

	rec = s.do(http.MethodPost, "/api/lines/"+bolt.ID+"/apply", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/lines/nope/apply", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/lines/"+bolt.ID+"/apply?auto_create=maybe", "").Code)
}

func TestApplyLine_AcknowledgeOnly(t *testing.T) {
	s := newTestServer(t)
	run := s.createRun("")

	rec := s.do(http.MethodPost, "/api/lines/"+run.Lines[1].ID+"/apply?auto_create=false", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entities.AppliedAcknowledged, decode[dto.ApplyResult](t, rec).OrderKind)
	assert.Empty(t, s.fixture.Production.WorkOrders())
}

func TestApplyLine_ExternalFailure(t *testing.T) {
	s := newTestServer(t)
	run := s.createRun("")
	s.fixture.Purchasing.Err = errors.New("purchasing offline")

	rec := s.do(http.MethodPost, "/api/lines/"+run.Lines[0].ID+"/apply", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(http.MethodGet, "/api/runs/"+run.Run.ID, "")
	detail := decode[dto.RunDetail](t, rec)
	assert.False(t, detail.Lines[0].Applied)
}

func TestApplyRunAndLifecycle(t *testing.T) {
	s := newTestServer(t)
	run := s.createRun("")
	id := run.Run.ID

	rec := s.do(http.MethodPost, "/api/runs/"+id+"/mark-applied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unapplied suggestions remain")

	rec = s.do(http.MethodPost, "/api/runs/"+id+"/apply", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[dto.ApplySummary](t, rec)
	assert.Equal(t, 1, summary.PurchaseRequisitions)
	assert.Equal(t, 1, summary.WorkOrders)
	assert.Empty(t, summary.Errors)

	rec = s.do(http.MethodPost, "/api/runs/"+id+"/mark-applied", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "applied", decode[dto.RunView](t, rec).Status)

	rec = s.do(http.MethodPost, "/api/runs/"+id+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "applied runs cannot be cancelled")

	rec = s.do(http.MethodDelete, "/api/runs/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/runs/"+id, "").Code)
}

func TestCancelRun(t *testing.T) {
	s := newTestServer(t)
	run := s.createRun("")

	rec := s.do(http.MethodPost, "/api/runs/"+run.Run.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[dto.RunView](t, rec)
	assert.Equal(t, "cancelled", view.Status)
	assert.NotNil(t, view.CancelledAt)

	rec = s.do(http.MethodPost, "/api/runs/"+run.Run.ID+"/apply", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplodeItem(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/items/FRAME/explode?qty=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	components := decode[[]ComponentView](t, rec)
	require.Len(t, components, 1)
	assert.Equal(t, "BOLT", components[0].ItemID)
	assert.Equal(t, "FRAME", components[0].ParentID)
	assert.Equal(t, "12", components[0].Quantity.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/items/NOPE/explode", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/items/FRAME/explode?qty=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/items/FRAME/explode?qty=0", "").Code)
}

func TestCriticalPath(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/items/FRAME/critical-path?qty=2&top=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	analysis := decode[mrp.CriticalPathAnalysis](t, rec)
	assert.Equal(t, 1, analysis.TotalPaths)
	assert.Equal(t, 6, analysis.CriticalPath.TotalLeadTime)
	assert.Equal(t, []entities.ItemID{"FRAME", "BOLT"}, analysis.CriticalPath.Items())
	assert.Equal(t, "8", analysis.CriticalPath.Nodes[1].RequiredQty.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/items/NOPE/critical-path", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/items/FRAME/critical-path?top=x", "").Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", entities.NewValidationError("bad"), http.StatusBadRequest},
		{"cycle", &entities.CyclicBOMError{Path: []entities.ItemID{"A", "A"}}, http.StatusBadRequest},
		{"not found", fmt.Errorf("wrapped: %w", &entities.NotFoundError{Entity: "run", ID: "x"}), http.StatusNotFound},
		{"already applied", &entities.AlreadyAppliedError{LineID: "l"}, http.StatusConflict},
		{"transition", &entities.ValidationError{Message: "no", Err: entities.ErrInvalidTransition}, http.StatusConflict},
		{"external", &entities.ExternalServiceError{Service: "production", Err: errors.New("down")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}
