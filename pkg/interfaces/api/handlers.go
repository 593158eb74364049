package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/logger"
)

// Planner is the part of the planning engine the API serves
type Planner interface {
	RunMRP(ctx context.Context, opts mrp.RunOptions) (*dto.RunReport, error)
	GetRun(ctx context.Context, runID string) (*entities.Run, error)
	ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error)
	RunLines(ctx context.Context, runID string) ([]entities.RunLine, error)
	CancelRun(ctx context.Context, runID string) (*entities.Run, error)
	MarkRunApplied(ctx context.Context, runID string) (*entities.Run, error)
	DeleteRun(ctx context.Context, runID string) error
	ApplySuggestion(ctx context.Context, lineID string, autoCreate bool) (*dto.ApplyResult, error)
	ApplyAllSuggestions(ctx context.Context, runID string, autoCreate bool) (*dto.ApplySummary, error)
	ExplodeItem(ctx context.Context, itemID entities.ItemID, qty decimal.Decimal, maxLevel int) ([]mrp.ExplodedComponent, error)
	AnalyzeCriticalPath(ctx context.Context, itemID entities.ItemID, qty decimal.Decimal, topN int) (*mrp.CriticalPathAnalysis, error)
}

var _ Planner = (*mrp.Service)(nil)

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	planner     Planner
	defaults    mrp.RunOptions
	maxBOMLevel int
	logger      *logger.Logger
}

// NewHandler creates a handler. defaults fill the fields a run request omits
// and maxBOMLevel bounds explosions that do not pass max_level.
func NewHandler(planner Planner, defaults mrp.RunOptions, maxBOMLevel int, log *logger.Logger) *Handler {
	return &Handler{
		planner:     planner,
		defaults:    defaults,
		maxBOMLevel: maxBOMLevel,
		logger:      logger.OrNop(log).With("component", "api"),
	}
}

// RunRequest is the body of POST /api/runs. Omitted fields take the server defaults.
type RunRequest struct {
	HorizonDays           *int   `json:"horizon_days"`
	ConsiderSafetyStock   *bool  `json:"consider_safety_stock"`
	IncludeWorkOrders     *bool  `json:"include_work_orders"`
	IncludeSalesOrders    *bool  `json:"include_sales_orders"`
	IncludePlannerDemand  *bool  `json:"include_planner_demand"`
	DeriveComponentDemand *bool  `json:"derive_component_demand"`
	ItemID                string `json:"item_id"`
	Note                  string `json:"note"`
}

func (req RunRequest) options(defaults mrp.RunOptions) mrp.RunOptions {
	opts := defaults
	if req.HorizonDays != nil {
		opts.HorizonDays = *req.HorizonDays
	}
	if req.ConsiderSafetyStock != nil {
		opts.ConsiderSafetyStock = *req.ConsiderSafetyStock
	}
	if req.IncludeWorkOrders != nil {
		opts.IncludeWorkOrders = *req.IncludeWorkOrders
	}
	if req.IncludeSalesOrders != nil {
		opts.IncludeSalesOrders = *req.IncludeSalesOrders
	}
	if req.IncludePlannerDemand != nil {
		opts.IncludePlannerDemand = *req.IncludePlannerDemand
	}
	if req.DeriveComponentDemand != nil {
		opts.DeriveComponentDemand = *req.DeriveComponentDemand
	}
	opts.ItemFilter = entities.ItemID(req.ItemID)
	opts.Note = req.Note
	return opts
}

// ComponentView is one row of a BOM explosion
type ComponentView struct {
	Level    int             `json:"level"`
	ParentID string          `json:"parent_id"`
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRun handles POST /api/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	report, err := h.planner.RunMRP(r.Context(), req.options(h.defaults))
	if err != nil {
		h.fail(w, "run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewRunDetail(report))
}

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := entities.RunFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := entities.ParseRunStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status", err)
			return
		}
		filter.Status = status
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", fmt.Errorf("limit must be a non-negative integer, got %q", s))
			return
		}
		filter.Limit = limit
	}

	runs, err := h.planner.ListRuns(r.Context(), filter)
	if err != nil {
		h.fail(w, "failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewRunViews(runs))
}

// GetRun handles GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.planner.GetRun(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to get run", err)
		return
	}
	lines, err := h.planner.RunLines(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to get run lines", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RunDetail{
		Run:   dto.NewRunView(run),
		Lines: dto.NewRunLineViews(lines),
	})
}

// DeleteRun handles DELETE /api/runs/{id}
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "failed to delete run", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelRun handles POST /api/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.planner.CancelRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to cancel run", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewRunView(run))
}

// MarkRunApplied handles POST /api/runs/{id}/mark-applied
func (h *Handler) MarkRunApplied(w http.ResponseWriter, r *http.Request) {
	run, err := h.planner.MarkRunApplied(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to mark run applied", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewRunView(run))
}

// ApplyRun handles POST /api/runs/{id}/apply
func (h *Handler) ApplyRun(w http.ResponseWriter, r *http.Request) {
	autoCreate, err := autoCreateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auto_create", err)
		return
	}
	summary, err := h.planner.ApplyAllSuggestions(r.Context(), chi.URLParam(r, "id"), autoCreate)
	if err != nil {
		h.fail(w, "failed to apply run", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ApplyLine handles POST /api/lines/{id}/apply
func (h *Handler) ApplyLine(w http.ResponseWriter, r *http.Request) {
	autoCreate, err := autoCreateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auto_create", err)
		return
	}
	res, err := h.planner.ApplySuggestion(r.Context(), chi.URLParam(r, "id"), autoCreate)
	if err != nil {
		h.fail(w, "failed to apply suggestion", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExplodeItem handles GET /api/items/{id}/explode
func (h *Handler) ExplodeItem(w http.ResponseWriter, r *http.Request) {
	qty, err := qtyParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid qty", err)
		return
	}
	maxLevel := h.maxBOMLevel
	if s := r.URL.Query().Get("max_level"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_level", err)
			return
		}
		maxLevel = v
	}

	components, err := h.planner.ExplodeItem(r.Context(), entities.ItemID(chi.URLParam(r, "id")), qty, maxLevel)
	if err != nil {
		h.fail(w, "failed to explode item", err)
		return
	}
	out := make([]ComponentView, 0, len(components))
	for _, c := range components {
		out = append(out, ComponentView{
			Level:    c.Level,
			ParentID: string(c.ParentID),
			ItemID:   string(c.ItemID),
			Quantity: c.Quantity,
			Unit:     c.Unit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// CriticalPath handles GET /api/items/{id}/critical-path
func (h *Handler) CriticalPath(w http.ResponseWriter, r *http.Request) {
	qty, err := qtyParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid qty", err)
		return
	}
	top := mrp.DefaultTopPaths
	if s := r.URL.Query().Get("top"); s != "" {
		if top, err = strconv.Atoi(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid top", err)
			return
		}
	}

	analysis, err := h.planner.AnalyzeCriticalPath(r.Context(), entities.ItemID(chi.URLParam(r, "id")), qty, top)
	if err != nil {
		h.fail(w, "failed to analyze critical path", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func qtyParam(r *http.Request) (decimal.Decimal, error) {
	s := r.URL.Query().Get("qty")
	if s == "" {
		return decimal.NewFromInt(1), nil
	}
	return decimal.NewFromString(s)
}

func autoCreateParam(r *http.Request) (bool, error) {
	s := r.URL.Query().Get("auto_create")
	if s == "" {
		return true, nil
	}
	return strconv.ParseBool(s)
}

// fail maps a service error onto its HTTP status
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case entities.IsConflict(err):
		return http.StatusConflict
	case entities.IsNotFound(err):
		return http.StatusNotFound
	case entities.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
