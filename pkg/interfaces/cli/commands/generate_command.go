package commands

import (
	stdcsv "encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items     int     // Total number of items to generate
	MaxDepth  int     // Maximum depth of BOM tree
	Demands   int     // Number of sales order lines on top-level assemblies
	Inventory float64 // Stock multiplier (0.5 = half of one assembly's needs)
	Receipts  int     // Number of open purchase order lines
	OutputDir string
	Seed      int64
	Start     time.Time // First day demand and receipts may fall on
	Horizon   int       // Days after Start over which dates are spread
}

// bomNode is one item of the generated product structure
type bomNode struct {
	id       string
	level    int
	root     bool
	children []bomEdge
	parents  []*bomNode
}

type bomEdge struct {
	child *bomNode
	qty   int
}

// ScenarioGenerator writes a synthetic planning scenario as CSV files
type ScenarioGenerator struct {
	config GenerateConfig
	rand   *rand.Rand
}

// NewScenarioGenerator creates a generator; a zero seed draws one from the clock
func NewScenarioGenerator(config GenerateConfig) *ScenarioGenerator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Start.IsZero() {
		config.Start = entities.Day(time.Now())
	}
	if config.Horizon <= 0 {
		config.Horizon = 90
	}
	return &ScenarioGenerator{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// Generate writes items, BOMs, stock, sales orders and purchase orders
func (g *ScenarioGenerator) Generate() error {
	if g.config.Items <= 0 {
		return fmt.Errorf("items must be positive, got %d", g.config.Items)
	}
	if g.config.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", g.config.MaxDepth)
	}
	if err := os.MkdirAll(g.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	nodes := g.generateTree()

	steps := []struct {
		file  string
		write func([]*bomNode) [][]string
	}{
		{csv.ItemsFile, g.items},
		{csv.BOMsFile, g.boms},
		{csv.StockFile, g.stock},
		{csv.SalesOrdersFile, g.salesOrders},
		{csv.PurchaseOrdersFile, g.purchaseOrders},
	}
	for _, s := range steps {
		if err := writeCSVFile(filepath.Join(g.config.OutputDir, s.file), s.write(nodes)); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.file, err)
		}
	}
	return nil
}

// generateTree builds a layered product structure in which lower-level parts
// are sometimes shared between parents. Nodes are returned in creation order.
func (g *ScenarioGenerator) generateTree() []*bomNode {
	var nodes []*bomNode
	numRoots := max(1, g.config.Items/50+g.rand.Intn(3))
	if numRoots > g.config.Items {
		numRoots = g.config.Items
	}

	var current []*bomNode
	for i := 0; i < numRoots; i++ {
		n := &bomNode{id: fmt.Sprintf("ASSY-%03d", i+1), root: true}
		nodes = append(nodes, n)
		current = append(current, n)
	}

	level := 0
	for level < g.config.MaxDepth && len(nodes) < g.config.Items {
		level++
		var next []*bomNode

		for _, parent := range current {
			numChildren := 2 + g.rand.Intn(7)
			for c := 0; c < numChildren && len(nodes) < g.config.Items; c++ {
				var child *bomNode
				if level > 1 && g.rand.Float64() < 0.2 {
					if candidates := g.shareable(nodes, level, parent); len(candidates) > 0 {
						child = candidates[g.rand.Intn(len(candidates))]
					}
				}
				if child == nil {
					child = &bomNode{id: fmt.Sprintf("PART-L%d-%04d", level, len(nodes)), level: level}
					nodes = append(nodes, child)
					next = append(next, child)
				}

				qty := 1 + g.rand.Intn(5)
				if level > 2 {
					qty += g.rand.Intn(5)
				}
				parent.children = append(parent.children, bomEdge{child: child, qty: qty})
				child.parents = append(child.parents, parent)
			}
		}

		if len(next) == 0 {
			break
		}
		current = next
	}

	// Remaining items hang off the deepest level as purchased leaves
	for len(nodes) < g.config.Items {
		n := &bomNode{id: fmt.Sprintf("COMP-%04d", len(nodes)), level: level + 1}
		parent := current[g.rand.Intn(len(current))]
		parent.children = append(parent.children, bomEdge{child: n, qty: 1 + g.rand.Intn(10)})
		n.parents = append(n.parents, parent)
		nodes = append(nodes, n)
	}
	return nodes
}

// shareable returns existing parts that parent could reuse without a cycle or
// a duplicate BOM line
func (g *ScenarioGenerator) shareable(nodes []*bomNode, level int, parent *bomNode) []*bomNode {
	var out []*bomNode
	for _, n := range nodes {
		if n.level < level-1 || len(n.parents) >= 3 || n == parent {
			continue
		}
		if isAncestor(n, parent, make(map[*bomNode]bool)) || hasChild(parent, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isAncestor(candidate, node *bomNode, visited map[*bomNode]bool) bool {
	if visited[node] {
		return false
	}
	visited[node] = true
	for _, p := range node.parents {
		if p == candidate || isAncestor(candidate, p, visited) {
			return true
		}
	}
	return false
}

func hasChild(parent, child *bomNode) bool {
	for _, e := range parent.children {
		if e.child == child {
			return true
		}
	}
	return false
}

func (g *ScenarioGenerator) items(nodes []*bomNode) [][]string {
	rows := [][]string{{"item_id", "code", "name", "unit_of_measure", "lead_time_days", "safety_stock", "min_order_qty", "order_multiple", "procurement_type", "active"}}
	for _, n := range nodes {
		procurement := entities.ProcurementPurchase
		if len(n.children) > 0 {
			procurement = entities.ProcurementManufacture
		}
		safety, minQty, multiple := g.lotSizing(n)
		rows = append(rows, []string{
			n.id, n.id, g.description(n), "EA",
			strconv.Itoa(g.leadTime(n)),
			strconv.Itoa(safety), strconv.Itoa(minQty), strconv.Itoa(multiple),
			string(procurement), "true",
		})
	}
	return rows
}

func (g *ScenarioGenerator) description(n *bomNode) string {
	switch {
	case n.root:
		return n.id + " Complete Assembly"
	case len(n.children) > 0:
		return n.id + " Subassembly"
	default:
		kinds := []string{"Component", "Module", "Unit", "Block", "Element"}
		return n.id + " " + kinds[g.rand.Intn(len(kinds))]
	}
}

// leadTime shortens with depth; top assemblies take weeks, leaves days
func (g *ScenarioGenerator) leadTime(n *bomNode) int {
	switch {
	case n.root:
		return 10 + g.rand.Intn(10)
	case n.level <= 2:
		return 5 + g.rand.Intn(10)
	default:
		return 1 + g.rand.Intn(7)
	}
}

func (g *ScenarioGenerator) lotSizing(n *bomNode) (safety, minQty, multiple int) {
	if n.root || n.level <= 2 {
		return 0, 1, 1
	}
	switch roll := g.rand.Float64(); {
	case roll < 0.6:
		return g.rand.Intn(3), 1, 1
	case roll < 0.8:
		return g.rand.Intn(5), 5 + g.rand.Intn(15), 1
	default:
		pack := 10 + g.rand.Intn(90)
		return pack / 10, pack, pack
	}
}

func (g *ScenarioGenerator) boms(nodes []*bomNode) [][]string {
	rows := [][]string{{"bom_id", "item_id", "status", "component_id", "quantity", "scrap_percent", "unit"}}
	for _, n := range nodes {
		for _, e := range n.children {
			rows = append(rows, []string{
				"BOM-" + n.id, n.id, string(entities.BOMActive), e.child.id, strconv.Itoa(e.qty), "0", "EA",
			})
		}
	}
	return rows
}

// stock covers Inventory times the parts of one unit of the first assembly
func (g *ScenarioGenerator) stock(nodes []*bomNode) [][]string {
	counts := make(map[*bomNode]int)
	explodeCounts(nodes[0], 1, counts, make(map[*bomNode]bool))

	rows := [][]string{{"item_id", "location", "quantity"}}
	for _, n := range nodes {
		qty := int(float64(counts[n]) * g.config.Inventory)
		if qty <= 0 {
			continue
		}
		rows = append(rows, []string{n.id, g.location(), strconv.Itoa(qty)})
	}
	return rows
}

func explodeCounts(n *bomNode, qty int, counts map[*bomNode]int, path map[*bomNode]bool) {
	if path[n] {
		return
	}
	path[n] = true
	counts[n] += qty
	for _, e := range n.children {
		explodeCounts(e.child, qty*e.qty, counts, path)
	}
	delete(path, n)
}

func (g *ScenarioGenerator) salesOrders(nodes []*bomNode) [][]string {
	var roots []*bomNode
	for _, n := range nodes {
		if n.root {
			roots = append(roots, n)
		}
	}

	rows := [][]string{{"sales_order_id", "order_number", "status", "delivery_date", "item_id", "quantity", "delivered_qty"}}
	for i := 0; i < g.config.Demands; i++ {
		root := roots[g.rand.Intn(len(roots))]
		rows = append(rows, []string{
			fmt.Sprintf("so-%04d", i+1),
			fmt.Sprintf("SO-%04d", i+1),
			string(entities.SalesOrderConfirmed),
			g.date(),
			root.id,
			strconv.Itoa(1 + g.rand.Intn(5)),
			"0",
		})
	}
	return rows
}

func (g *ScenarioGenerator) purchaseOrders(nodes []*bomNode) [][]string {
	var leaves []*bomNode
	for _, n := range nodes {
		if len(n.children) == 0 {
			leaves = append(leaves, n)
		}
	}
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].id < leaves[j].id })

	rows := [][]string{{"purchase_order_id", "order_number", "status", "delivery_date", "item_id", "ordered_qty", "received_qty"}}
	if len(leaves) == 0 {
		return rows
	}
	for i := 0; i < g.config.Receipts; i++ {
		leaf := leaves[g.rand.Intn(len(leaves))]
		rows = append(rows, []string{
			fmt.Sprintf("po-%04d", i+1),
			fmt.Sprintf("PO-%04d", i+1),
			string(entities.PurchaseOrderConfirmed),
			g.date(),
			leaf.id,
			strconv.Itoa(10 + g.rand.Intn(90)),
			"0",
		})
	}
	return rows
}

func (g *ScenarioGenerator) date() string {
	return g.config.Start.AddDate(0, 0, 1+g.rand.Intn(g.config.Horizon)).Format(entities.DateLayout)
}

func (g *ScenarioGenerator) location() string {
	locations := []string{"FACTORY_A", "FACTORY_B", "WAREHOUSE_1", "WAREHOUSE_2"}
	return locations[g.rand.Intn(len(locations))]
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := stdcsv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newGenerateCommand() *cobra.Command {
	var (
		cfg   GenerateConfig
		start string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic CSV scenario",
		Long: `Generates a layered product structure with shared components, stock,
confirmed sales orders on the top assemblies and open purchase orders on
purchased parts. The output directory can be used as erp.scenario_dir.`,
		Example: `  mrp generate --items 100 --max-depth 5 --demands 10 --inventory 0.5 --output ./scenario
  mrp generate --items 1000 --max-depth 6 --demands 20 --seed 12345 --output ./repro`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if start != "" {
				day, err := entities.ParseDay(start)
				if err != nil {
					return err
				}
				cfg.Start = day
			}
			if cfg.OutputDir == "" {
				return fmt.Errorf("--output is required")
			}
			if err := NewScenarioGenerator(cfg).Generate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Scenario generated in %s\n", cfg.OutputDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Items, "items", 50, "number of items")
	f.IntVar(&cfg.MaxDepth, "max-depth", 4, "maximum BOM depth")
	f.IntVar(&cfg.Demands, "demands", 10, "number of sales order lines")
	f.Float64Var(&cfg.Inventory, "inventory", 0.5, "stock multiplier relative to one assembly")
	f.IntVar(&cfg.Receipts, "receipts", 5, "number of open purchase order lines")
	f.IntVar(&cfg.Horizon, "horizon", 90, "days over which dates are spread")
	f.StringVar(&cfg.OutputDir, "output", "", "output directory")
	f.StringVar(&start, "start", "", "first planning day, YYYY-MM-DD (default today)")
	f.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducible output")
	return cmd
}
