package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Deleting a flow cell cascades to its
// libraries, histograms, and messages.
type Transaction interface {
	Snapshot() TransactionView
	CreateSequencingMachine(SequencingMachine) (SequencingMachine, error)
	UpdateSequencingMachine(id string, mutator func(*SequencingMachine) error) (SequencingMachine, error)
	DeleteSequencingMachine(id string) error
	CreateBarcodeSet(BarcodeSet) (BarcodeSet, error)
	UpdateBarcodeSet(id string, mutator func(*BarcodeSet) error) (BarcodeSet, error)
	DeleteBarcodeSet(id string) error
	CreateFlowCell(FlowCell) (FlowCell, error)
	UpdateFlowCell(id string, mutator func(*FlowCell) error) (FlowCell, error)
	DeleteFlowCell(id string) error
	CreateLibrary(Library) (Library, error)
	UpdateLibrary(id string, mutator func(*Library) error) (Library, error)
	DeleteLibrary(id string) error
	// SetLaneIndexHistogram upserts keyed by (flow cell, lane, index read).
	SetLaneIndexHistogram(LaneIndexHistogram) (LaneIndexHistogram, error)
	DeleteLaneIndexHistogram(id string) error
	CreateMessage(Message) (Message, error)
	UpdateMessage(id string, mutator func(*Message) error) (Message, error)
	DeleteMessage(id string) error
	FindFlowCell(id string) (FlowCell, bool)
	FindMessage(id string) (Message, bool)
}

// TransactionView provides read-only access to snapshot data. It extends the
// rule view with the data revision used for report caching.
type TransactionView interface {
	RuleView
	// FlowCellRevision returns a counter bumped on every committed change to
	// the flow cell or any record it owns. Zero means unknown flow cell.
	FlowCellRevision(id string) uint64
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetFlowCell(id string) (FlowCell, bool)
	ListFlowCells() []FlowCell
	ListLibraries(flowCellID string) []Library
	ListIndexHistograms(flowCellID string) []LaneIndexHistogram
	ListMessages(flowCellID string) []Message
	ListSequencingMachines() []SequencingMachine
	ListBarcodeSets() []BarcodeSet
	FlowCellRevision(id string) uint64
}
