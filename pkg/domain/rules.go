package domain

import "context"

// RuleView provides read-only access to domain entities for rule evaluation.
// List methods return stable orderings: libraries by name, histograms by
// (lane, index read), flow cells by run date descending.
type RuleView interface {
	ListSequencingMachines() []SequencingMachine
	ListBarcodeSets() []BarcodeSet
	ListFlowCells() []FlowCell
	ListLibraries(flowCellID string) []Library
	ListIndexHistograms(flowCellID string) []LaneIndexHistogram
	ListMessages(flowCellID string) []Message
	FindSequencingMachine(id string) (SequencingMachine, bool)
	FindBarcodeEntry(id string) (BarcodeSetEntry, bool)
	FindFlowCell(id string) (FlowCell, bool)
	FindLibrary(id string) (Library, bool)
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
