package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// Requisition is a purchase requisition recorded by Purchasing
type Requisition struct {
	ID    string
	Note  string
	Lines []entities.RequisitionLine
}

// Purchasing records requisitions instead of calling a purchasing system
type Purchasing struct {
	mu           sync.Mutex
	requisitions []Requisition
	// Err, when set, fails every call
	Err error
}

// NewPurchasing creates a recording purchasing collaborator
func NewPurchasing() *Purchasing {
	return &Purchasing{}
}

var _ repositories.Purchasing = (*Purchasing)(nil)

func (p *Purchasing) CreatePurchaseRequisition(_ context.Context, lines []entities.RequisitionLine, note string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	id := fmt.Sprintf("PR-%05d", len(p.requisitions)+1)
	p.requisitions = append(p.requisitions, Requisition{
		ID:    id,
		Note:  note,
		Lines: append([]entities.RequisitionLine(nil), lines...),
	})
	return id, nil
}

// Requisitions returns the requisitions created so far
func (p *Purchasing) Requisitions() []Requisition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Requisition(nil), p.requisitions...)
}

// WorkOrder is a work order recorded by Production
type WorkOrder struct {
	ID      string
	Request entities.WorkOrderRequest
}

// Production records work orders instead of calling a production system
type Production struct {
	mu         sync.Mutex
	workOrders []WorkOrder
	// Err, when set, fails every call
	Err error
	// FailItems fails calls for the listed items only
	FailItems map[entities.ItemID]error
}

// NewProduction creates a recording production collaborator
func NewProduction() *Production {
	return &Production{FailItems: make(map[entities.ItemID]error)}
}

var _ repositories.Production = (*Production)(nil)

func (p *Production) CreateWorkOrder(_ context.Context, req entities.WorkOrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	if err, ok := p.FailItems[req.ItemID]; ok {
		return "", err
	}
	id := fmt.Sprintf("WO-%05d", len(p.workOrders)+1)
	p.workOrders = append(p.workOrders, WorkOrder{ID: id, Request: req})
	return id, nil
}

// WorkOrders returns the work orders created so far
func (p *Production) WorkOrders() []WorkOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WorkOrder(nil), p.workOrders...)
}
