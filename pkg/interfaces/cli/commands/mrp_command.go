package commands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-planner/pkg/application/dto"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/interfaces/cli/output"
)

func newRunCommand(o *rootOptions) *cobra.Command {
	var (
		horizon       int
		safetyStock   bool
		workOrders    bool
		salesOrders   bool
		plannerDemand bool
		derive        bool
		item          string
		note          string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an MRP run",
		Long: `Plans every active item, or only --item, over the horizon and stores the
run with one line per dated requirement. Flags that are not given take the
planning section of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := RunDefaults(o.cfg.Planning)
			f := cmd.Flags()
			if f.Changed("horizon") {
				opts.HorizonDays = horizon
			}
			if f.Changed("safety-stock") {
				opts.ConsiderSafetyStock = safetyStock
			}
			if f.Changed("work-orders") {
				opts.IncludeWorkOrders = workOrders
			}
			if f.Changed("sales-orders") {
				opts.IncludeSalesOrders = salesOrders
			}
			if f.Changed("planner-demand") {
				opts.IncludePlannerDemand = plannerDemand
			}
			if f.Changed("derive") {
				opts.DeriveComponentDemand = derive
			}
			opts.ItemFilter = entities.ItemID(item)
			opts.Note = note

			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				report, err := rt.Service.RunMRP(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return p.Run(dto.NewRunDetail(report))
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&horizon, "horizon", 90, "planning horizon in days")
	f.BoolVar(&safetyStock, "safety-stock", true, "keep projected stock at or above safety stock")
	f.BoolVar(&workOrders, "work-orders", true, "include work order material demand")
	f.BoolVar(&salesOrders, "sales-orders", true, "include sales order demand")
	f.BoolVar(&plannerDemand, "planner-demand", false, "include manual and forecast demand")
	f.BoolVar(&derive, "derive", false, "derive component demand from manufacture suggestions")
	f.StringVar(&item, "item", "", "plan only this item")
	f.StringVar(&note, "note", "", "note stored on the run")
	return cmd
}

func newApplyCommand(o *rootOptions) *cobra.Command {
	var (
		lineID     string
		autoCreate bool
	)

	cmd := &cobra.Command{
		Use:   "apply [run-id]",
		Short: "Apply run suggestions",
		Long: `Applies every unapplied suggestion of a completed run, or a single line
with --line. With --auto-create (the default) purchase suggestions become one
purchase requisition and each manufacture suggestion becomes a work order;
--auto-create=false only acknowledges the lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (lineID == "") == (len(args) == 0) {
				return errors.New("give either a run id or --line")
			}

			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				if lineID != "" {
					res, err := rt.Service.ApplySuggestion(cmd.Context(), lineID, autoCreate)
					if err != nil {
						return err
					}
					return p.ApplyResult(res)
				}

				summary, err := rt.Service.ApplyAllSuggestions(cmd.Context(), args[0], autoCreate)
				if err != nil {
					return err
				}
				if err := p.ApplySummary(summary); err != nil {
					return err
				}
				if len(summary.Errors) > 0 {
					return fmt.Errorf("%d suggestions could not be applied", len(summary.Errors))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lineID, "line", "", "apply only this run line")
	cmd.Flags().BoolVar(&autoCreate, "auto-create", true, "create requisitions and work orders")
	return cmd
}

func newRunsCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage stored runs",
	}

	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := entities.RunFilter{Limit: limit}
			if status != "" {
				st, err := entities.ParseRunStatus(status)
				if err != nil {
					return err
				}
				filter.Status = st
			}
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				runs, err := rt.Service.ListRuns(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return p.Runs(dto.NewRunViews(runs))
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "only runs in this status")
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs, 0 for all")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				run, err := rt.Service.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				lines, err := rt.Service.RunLines(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.Run(dto.RunDetail{Run: dto.NewRunView(run), Lines: dto.NewRunLineViews(lines)})
			})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a pending or completed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				run, err := rt.Service.CancelRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.RunStatus(dto.NewRunView(run))
			})
		},
	}

	markApplied := &cobra.Command{
		Use:   "mark-applied <run-id>",
		Short: "Close a completed run whose suggestions are all applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				run, err := rt.Service.MarkRunApplied(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.RunStatus(dto.NewRunView(run))
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				if err := rt.Service.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Run %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, cancel, markApplied, del)
	return cmd
}

// errInvalidBOMs makes validate exit non-zero after printing the problems
var errInvalidBOMs = errors.New("BOM validation failed")

func newValidateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check BOMs for cycles, duplicates and unknown components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				res, err := rt.ValidateBOMs(cmd.Context())
				if err != nil {
					return err
				}
				if err := p.Validation(res); err != nil {
					return err
				}
				if !res.Valid() {
					return errInvalidBOMs
				}
				return nil
			})
		},
	}
}

func newExplodeCommand(o *rootOptions) *cobra.Command {
	var (
		qty      string
		maxLevel int
	)

	cmd := &cobra.Command{
		Use:   "explode <item-id>",
		Short: "List the components needed to build an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", qty, err)
			}
			level := o.cfg.Planning.MaxBOMLevel
			if cmd.Flags().Changed("max-level") {
				level = maxLevel
			}

			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				components, err := rt.Service.ExplodeItem(cmd.Context(), entities.ItemID(args[0]), q, level)
				if err != nil {
					return err
				}
				return p.Components(components)
			})
		},
	}

	cmd.Flags().StringVar(&qty, "qty", "1", "quantity of the item")
	cmd.Flags().IntVar(&maxLevel, "max-level", 10, "deepest BOM level to expand")
	return cmd
}

func newCriticalPathCommand(o *rootOptions) *cobra.Command {
	var (
		qty string
		top int
	)

	cmd := &cobra.Command{
		Use:   "critical-path <item-id>",
		Short: "Rank the longest lead-time chains below an item",
		Long: `Walks every path through the active BOMs below the item and ranks them by
lead time. Stock on hand shortens a component's effective lead time by the
share of the required quantity it covers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", qty, err)
			}

			return o.withRuntime(cmd, func(rt *Runtime, p *output.Printer) error {
				analysis, err := rt.Service.AnalyzeCriticalPath(cmd.Context(), entities.ItemID(args[0]), q, top)
				if err != nil {
					return err
				}
				return p.CriticalPath(analysis)
			})
		},
	}

	cmd.Flags().StringVar(&qty, "qty", "1", "quantity of the item")
	cmd.Flags().IntVar(&top, "top", 5, "number of paths to show")
	return cmd
}
