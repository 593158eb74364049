package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/application/services/mrp"
	"github.com/vsinha/mrp-planner/pkg/domain/services"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	// OutputDir, when set, receives run reports as files instead of w
	OutputDir string
}

// Printer renders command results in the configured format
type Printer struct {
	cfg Config
	w   io.Writer
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, cfg Config) (*Printer, error) {
	switch cfg.Format {
	case "":
		cfg.Format = FormatText
	case FormatText, FormatJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
	return &Printer{cfg: cfg, w: w}, nil
}

var lineHeader = []string{
	"sequence", "item_id", "requirement_date", "gross", "receipts", "projected", "net",
	"source_kind", "source_reference", "suggestion", "suggested_qty", "suggested_date",
	"applied", "applied_order_kind", "applied_order_id",
}

func lineRecord(l dto.RunLineView) []string {
	return []string{
		strconv.Itoa(l.Sequence),
		l.ItemID,
		l.RequirementDate,
		l.GrossRequirement.String(),
		l.ScheduledReceipts.String(),
		l.ProjectedOnHand.String(),
		l.NetRequirement.String(),
		l.SourceKind,
		l.SourceReference,
		l.Suggestion,
		l.SuggestedQty.String(),
		l.SuggestedDate,
		strconv.FormatBool(l.Applied),
		l.AppliedOrderKind,
		l.AppliedOrderID,
	}
}

// Run renders a run with its lines. With an output directory the report is
// written to <dir>/<run number>.<format> and only the path is printed.
func (p *Printer) Run(detail dto.RunDetail) error {
	if p.cfg.OutputDir == "" {
		return p.run(p.w, detail)
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(p.cfg.OutputDir, detail.Run.RunNumber+"."+p.cfg.Format)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	if err := p.run(f, detail); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "💾 Results saved to: %s\n", filename)
	return nil
}

func (p *Printer) run(w io.Writer, detail dto.RunDetail) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(w, detail)
	case FormatCSV:
		records := make([][]string, 0, len(detail.Lines))
		for _, l := range detail.Lines {
			records = append(records, lineRecord(l))
		}
		return writeCSV(w, lineHeader, records)
	}

	r := detail.Run
	fmt.Fprintf(w, "📊 MRP Run %s\n", r.RunNumber)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "ID:          %s\n", r.ID)
	fmt.Fprintf(w, "Status:      %s\n", r.Status)
	fmt.Fprintf(w, "Run Date:    %s (+%d days)\n", r.RunDate, r.HorizonDays)
	if r.ItemFilter != "" {
		fmt.Fprintf(w, "Item:        %s\n", r.ItemFilter)
	}
	fmt.Fprintf(w, "Items:       %d processed, %d with shortage\n", r.ItemsProcessed, r.ItemsWithShortage)
	fmt.Fprintf(w, "Suggestions: %d\n", r.SuggestionsProduced)
	if r.Note != "" {
		fmt.Fprintf(w, "Note:        %s\n", r.Note)
	}
	fmt.Fprintln(w)

	if len(detail.Lines) > 0 {
		fmt.Fprintf(w, "📋 Lines:\n")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tITEM\tDATE\tGROSS\tRECEIPTS\tPROJECTED\tNET\tSOURCE\tSUGGESTION\tQTY\tORDER DATE\tAPPLIED")
		for _, l := range detail.Lines {
			suggestion, qty, date := "-", "", ""
			if l.Suggestion != "none" {
				suggestion, qty, date = l.Suggestion, l.SuggestedQty.String(), l.SuggestedDate
			}
			applied := ""
			if l.Applied {
				applied = l.AppliedOrderKind
				if l.AppliedOrderID != "" {
					applied += " " + l.AppliedOrderID
				}
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.Sequence, l.ItemID, l.RequirementDate,
				l.GrossRequirement, l.ScheduledReceipts, l.ProjectedOnHand, l.NetRequirement,
				strings.TrimSpace(l.SourceKind+" "+l.SourceReference),
				suggestion, qty, date, applied)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	for _, e := range detail.SideEffectErrors {
		fmt.Fprintf(w, "⚠️  %s\n", e)
	}
	return nil
}

// Runs renders a run listing
func (p *Printer) Runs(runs []dto.RunView) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, runs)
	case FormatCSV:
		records := make([][]string, 0, len(runs))
		for _, r := range runs {
			records = append(records, []string{
				r.ID, r.RunNumber, r.RunDate, r.Status,
				strconv.Itoa(r.ItemsProcessed), strconv.Itoa(r.ItemsWithShortage), strconv.Itoa(r.SuggestionsProduced),
			})
		}
		return writeCSV(p.w, []string{"id", "run_number", "run_date", "status", "items_processed", "items_with_shortage", "suggestions"}, records)
	}

	if len(runs) == 0 {
		fmt.Fprintln(p.w, "No runs found")
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDATE\tSTATUS\tITEMS\tSHORTAGES\tSUGGESTIONS\tID")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RunNumber, r.RunDate, r.Status, r.ItemsProcessed, r.ItemsWithShortage, r.SuggestionsProduced, r.ID)
	}
	return tw.Flush()
}

// RunStatus renders a run after a status change
func (p *Printer) RunStatus(r dto.RunView) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, r)
	case FormatCSV:
		return writeCSV(p.w, []string{"id", "run_number", "status"}, [][]string{{r.ID, r.RunNumber, r.Status}})
	}
	_, err := fmt.Fprintf(p.w, "✅ Run %s is %s\n", r.RunNumber, r.Status)
	return err
}

// ApplyResult renders the outcome of applying one line
func (p *Printer) ApplyResult(res *dto.ApplyResult) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, res)
	case FormatCSV:
		return writeCSV(p.w, []string{"line_id", "item_id", "order_kind", "order_id"},
			[][]string{{res.LineID, string(res.ItemID), string(res.OrderKind), res.OrderID}})
	}
	_, err := fmt.Fprintf(p.w, "✅ Line %s (%s) applied: %s %s\n", res.LineID, res.ItemID, res.OrderKind, res.OrderID)
	return err
}

// ApplySummary renders the outcome of applying a whole run
func (p *Printer) ApplySummary(s *dto.ApplySummary) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, s)
	case FormatCSV:
		records := make([][]string, 0, len(s.Applied))
		for _, res := range s.Applied {
			records = append(records, []string{res.LineID, string(res.ItemID), string(res.OrderKind), res.OrderID})
		}
		return writeCSV(p.w, []string{"line_id", "item_id", "order_kind", "order_id"}, records)
	}

	fmt.Fprintf(p.w, "✅ Applied %d suggestions\n", len(s.Applied))
	fmt.Fprintf(p.w, "  Purchase Requisitions: %d\n", s.PurchaseRequisitions)
	fmt.Fprintf(p.w, "  Work Orders:           %d\n", s.WorkOrders)
	fmt.Fprintf(p.w, "  Acknowledged:          %d\n", s.Acknowledged)
	for _, e := range s.Errors {
		fmt.Fprintf(p.w, "❌ %s\n", e)
	}
	return nil
}

// Components renders a BOM explosion
func (p *Printer) Components(components []mrp.ExplodedComponent) error {
	type row struct {
		Level    int    `json:"level"`
		ParentID string `json:"parent_id"`
		ItemID   string `json:"item_id"`
		Quantity string `json:"quantity"`
		Unit     string `json:"unit"`
	}
	rows := make([]row, 0, len(components))
	for _, c := range components {
		rows = append(rows, row{c.Level, string(c.ParentID), string(c.ItemID), c.Quantity.String(), c.Unit})
	}

	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, rows)
	case FormatCSV:
		records := make([][]string, 0, len(rows))
		for _, r := range rows {
			records = append(records, []string{strconv.Itoa(r.Level), r.ParentID, r.ItemID, r.Quantity, r.Unit})
		}
		return writeCSV(p.w, []string{"level", "parent_id", "item_id", "quantity", "unit"}, records)
	}

	if len(rows) == 0 {
		fmt.Fprintln(p.w, "No components")
		return nil
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tITEM\tPARENT\tQTY\tUNIT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\n", r.Level, strings.Repeat("  ", r.Level), r.ItemID, r.ParentID, r.Quantity, r.Unit)
	}
	return tw.Flush()
}

// CriticalPath renders a critical path analysis
func (p *Printer) CriticalPath(a *mrp.CriticalPathAnalysis) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, a)
	case FormatCSV:
		records := make([][]string, 0)
		for rank, path := range a.TopPaths {
			for _, n := range path.Nodes {
				records = append(records, []string{
					strconv.Itoa(rank + 1), strconv.Itoa(n.Level), string(n.ItemID),
					strconv.Itoa(n.LeadTimeDays), strconv.Itoa(n.EffectiveLeadTime),
					n.RequiredQty.String(), n.OnHand.String(),
				})
			}
		}
		return writeCSV(p.w, []string{"rank", "level", "item_id", "lead_time_days", "effective_lead_time", "required_qty", "on_hand"}, records)
	}

	fmt.Fprintf(p.w, "🎯 Critical Path Analysis: %s x%s\n", a.ItemID, a.Quantity)
	fmt.Fprintf(p.w, "===============================\n\n")
	fmt.Fprintf(p.w, "Paths analyzed: %d\n\n", a.TotalPaths)

	for rank, path := range a.TopPaths {
		ids := make([]string, len(path.Nodes))
		for i, n := range path.Nodes {
			ids[i] = string(n.ItemID)
		}
		fmt.Fprintf(p.w, "%d. %s\n", rank+1, strings.Join(ids, " → "))
		fmt.Fprintf(p.w, "   Lead time: %d days (%d effective), bottleneck %s\n", path.TotalLeadTime, path.EffectiveLeadTime, path.Bottleneck)
	}
	return nil
}

// Validation renders a BOM validation result
func (p *Printer) Validation(res *services.ValidationResult) error {
	switch p.cfg.Format {
	case FormatJSON:
		return writeJSON(p.w, res)
	case FormatCSV:
		records := make([][]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			records = append(records, []string{e})
		}
		return writeCSV(p.w, []string{"error"}, records)
	}

	if res.Valid() {
		_, err := fmt.Fprintln(p.w, "✅ BOMs are valid")
		return err
	}
	fmt.Fprintf(p.w, "❌ %d problems found:\n", len(res.Errors))
	for _, e := range res.Errors {
		fmt.Fprintf(p.w, "  - %s\n", e)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
