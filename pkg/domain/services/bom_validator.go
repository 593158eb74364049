package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// BOMValidator checks the structure of a set of bills of materials before planning
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// DuplicateLine is a component listed more than once on the same BOM
type DuplicateLine struct {
	BOMID       string
	ComponentID entities.ItemID
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles         bool
	CyclePaths        [][]entities.ItemID
	DuplicateLines    []DuplicateLine
	UnknownComponents []entities.ItemID
	MultipleActive    []entities.ItemID
	Errors            []string
}

// Valid reports whether no problems were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOMs validates the usable BOMs among boms. items may be nil, in which
// case components are not checked against the item master.
func (v *BOMValidator) ValidateBOMs(boms []*entities.BOM, items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:        make([][]entities.ItemID, 0),
		DuplicateLines:    make([]DuplicateLine, 0),
		UnknownComponents: make([]entities.ItemID, 0),
		MultipleActive:    make([]entities.ItemID, 0),
		Errors:            make([]string, 0),
	}

	usable := make([]*entities.BOM, 0, len(boms))
	activePerItem := make(map[entities.ItemID]int)
	for _, b := range boms {
		if b.IsUsable() {
			usable = append(usable, b)
			activePerItem[b.ItemID]++
		}
	}
	for itemID, n := range activePerItem {
		if n > 1 {
			result.MultipleActive = append(result.MultipleActive, itemID)
		}
	}
	sortIDs(result.MultipleActive)

	adjacencyMap := v.buildAdjacencyMap(usable)
	result.CyclePaths = v.detectCycles(adjacencyMap)
	result.HasCycles = len(result.CyclePaths) > 0
	result.DuplicateLines = v.detectDuplicateLines(usable)
	if items != nil {
		result.UnknownComponents = v.detectUnknownComponents(usable, items)
	}

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, (&entities.CyclicBOMError{Path: cycle}).Error())
	}
	for _, id := range result.MultipleActive {
		result.Errors = append(result.Errors, fmt.Sprintf("item %s has more than one active BOM", id))
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM lines", len(result.DuplicateLines)))
	}
	for _, id := range result.UnknownComponents {
		result.Errors = append(result.Errors, fmt.Sprintf("component %s has no item master record", id))
	}

	return result
}

// buildAdjacencyMap creates a map of parent -> children relationships
func (v *BOMValidator) buildAdjacencyMap(boms []*entities.BOM) map[entities.ItemID][]entities.ItemID {
	adjacencyMap := make(map[entities.ItemID][]entities.ItemID)

	for _, b := range boms {
		children := adjacencyMap[b.ItemID]
		for _, line := range b.Lines {
			found := false
			for _, child := range children {
				if child == line.ComponentID {
					found = true
					break
				}
			}
			if !found {
				children = append(children, line.ComponentID)
			}
		}
		adjacencyMap[b.ItemID] = children
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.ItemID][]entities.ItemID) [][]entities.ItemID {
	visited := make(map[entities.ItemID]bool)
	recursionStack := make(map[entities.ItemID]bool)
	cycles := make([][]entities.ItemID, 0)

	parents := make([]entities.ItemID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sortIDs(parents)

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current entities.ItemID,
	adjacencyMap map[entities.ItemID][]entities.ItemID,
	visited map[entities.ItemID]bool,
	recursionStack map[entities.ItemID]bool,
	path []entities.ItemID,
	cycles *[][]entities.ItemID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, id := range path {
			if id == child {
				cycle := make([]entities.ItemID, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateLines finds components listed twice on one BOM
func (v *BOMValidator) detectDuplicateLines(boms []*entities.BOM) []DuplicateLine {
	duplicates := make([]DuplicateLine, 0)

	for _, b := range boms {
		seen := make(map[entities.ItemID]bool)
		for _, line := range b.Lines {
			if seen[line.ComponentID] {
				duplicates = append(duplicates, DuplicateLine{BOMID: b.ID, ComponentID: line.ComponentID})
				continue
			}
			seen[line.ComponentID] = true
		}
	}

	return duplicates
}

func (v *BOMValidator) detectUnknownComponents(boms []*entities.BOM, items []*entities.Item) []entities.ItemID {
	known := make(map[entities.ItemID]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	seen := make(map[entities.ItemID]bool)
	unknown := make([]entities.ItemID, 0)
	for _, b := range boms {
		for _, line := range b.Lines {
			if !known[line.ComponentID] && !seen[line.ComponentID] {
				seen[line.ComponentID] = true
				unknown = append(unknown, line.ComponentID)
			}
		}
	}
	sortIDs(unknown)
	return unknown
}

// ValidateItemUniqueness validates that item ids are unique across the item master
func (v *BOMValidator) ValidateItemUniqueness(items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	seen := make(map[entities.ItemID]bool)
	duplicates := make([]entities.ItemID, 0)
	for _, item := range items {
		if seen[item.ID] {
			duplicates = append(duplicates, item.ID)
		} else {
			seen[item.ID] = true
		}
	}

	if len(duplicates) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate item ids found: %v", duplicates))
	}

	return result
}

func sortIDs(ids []entities.ItemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
