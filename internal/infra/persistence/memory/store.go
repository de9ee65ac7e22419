// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"flowcore/pkg/domain"
)

// Compile-time contract assertion for the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// SequencingMachine aliases domain.SequencingMachine.
	SequencingMachine = domain.SequencingMachine
	// BarcodeSet aliases domain.BarcodeSet.
	BarcodeSet = domain.BarcodeSet
	// BarcodeSetEntry aliases domain.BarcodeSetEntry.
	BarcodeSetEntry = domain.BarcodeSetEntry
	// FlowCell aliases domain.FlowCell.
	FlowCell = domain.FlowCell
	// Library aliases domain.Library.
	Library = domain.Library
	// LaneIndexHistogram aliases domain.LaneIndexHistogram.
	LaneIndexHistogram = domain.LaneIndexHistogram
	// Message aliases domain.Message.
	Message = domain.Message
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	machines    map[string]SequencingMachine
	barcodeSets map[string]BarcodeSet
	flowcells   map[string]FlowCell
	libraries   map[string]Library
	histograms  map[string]LaneIndexHistogram
	messages    map[string]Message
	revisions   map[string]uint64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Machines    map[string]SequencingMachine  `json:"machines"`
	BarcodeSets map[string]BarcodeSet         `json:"barcode_sets"`
	FlowCells   map[string]FlowCell           `json:"flow_cells"`
	Libraries   map[string]Library            `json:"libraries"`
	Histograms  map[string]LaneIndexHistogram `json:"histograms"`
	Messages    map[string]Message            `json:"messages"`
	Revisions   map[string]uint64             `json:"revisions"`
}

func newMemoryState() memoryState {
	return memoryState{
		machines:    make(map[string]SequencingMachine),
		barcodeSets: make(map[string]BarcodeSet),
		flowcells:   make(map[string]FlowCell),
		libraries:   make(map[string]Library),
		histograms:  make(map[string]LaneIndexHistogram),
		messages:    make(map[string]Message),
		revisions:   make(map[string]uint64),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Machines:    make(map[string]SequencingMachine, len(state.machines)),
		BarcodeSets: make(map[string]BarcodeSet, len(state.barcodeSets)),
		FlowCells:   make(map[string]FlowCell, len(state.flowcells)),
		Libraries:   make(map[string]Library, len(state.libraries)),
		Histograms:  make(map[string]LaneIndexHistogram, len(state.histograms)),
		Messages:    make(map[string]Message, len(state.messages)),
		Revisions:   make(map[string]uint64, len(state.revisions)),
	}
	for k, v := range state.machines {
		s.Machines[k] = cloneMachine(v)
	}
	for k, v := range state.barcodeSets {
		s.BarcodeSets[k] = cloneBarcodeSet(v)
	}
	for k, v := range state.flowcells {
		s.FlowCells[k] = cloneFlowCell(v)
	}
	for k, v := range state.libraries {
		s.Libraries[k] = cloneLibrary(v)
	}
	for k, v := range state.histograms {
		s.Histograms[k] = cloneHistogram(v)
	}
	for k, v := range state.messages {
		s.Messages[k] = cloneMessage(v)
	}
	for k, v := range state.revisions {
		s.Revisions[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Machines {
		state.machines[k] = cloneMachine(v)
	}
	for k, v := range s.BarcodeSets {
		state.barcodeSets[k] = cloneBarcodeSet(v)
	}
	for k, v := range s.FlowCells {
		state.flowcells[k] = cloneFlowCell(v)
	}
	for k, v := range s.Libraries {
		state.libraries[k] = cloneLibrary(v)
	}
	for k, v := range s.Histograms {
		state.histograms[k] = cloneHistogram(v)
	}
	for k, v := range s.Messages {
		state.messages[k] = cloneMessage(v)
	}
	for k, v := range s.Revisions {
		state.revisions[k] = v
	}
	return state
}

// migrateSnapshot drops records orphaned by their flow cell and seeds
// revision counters missing from older snapshots.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Machines == nil {
		snapshot.Machines = map[string]SequencingMachine{}
	}
	if snapshot.BarcodeSets == nil {
		snapshot.BarcodeSets = map[string]BarcodeSet{}
	}
	if snapshot.FlowCells == nil {
		snapshot.FlowCells = map[string]FlowCell{}
	}
	if snapshot.Libraries == nil {
		snapshot.Libraries = map[string]Library{}
	}
	if snapshot.Histograms == nil {
		snapshot.Histograms = map[string]LaneIndexHistogram{}
	}
	if snapshot.Messages == nil {
		snapshot.Messages = map[string]Message{}
	}
	if snapshot.Revisions == nil {
		snapshot.Revisions = map[string]uint64{}
	}

	flowCellExists := func(id string) bool {
		_, ok := snapshot.FlowCells[id]
		return ok
	}
	for id, library := range snapshot.Libraries {
		if library.FlowCellID == "" || !flowCellExists(library.FlowCellID) {
			delete(snapshot.Libraries, id)
		}
	}
	for id, histogram := range snapshot.Histograms {
		if histogram.FlowCellID == "" || !flowCellExists(histogram.FlowCellID) {
			delete(snapshot.Histograms, id)
		}
	}
	for id, message := range snapshot.Messages {
		if message.FlowCellID == "" || !flowCellExists(message.FlowCellID) {
			delete(snapshot.Messages, id)
		}
	}
	for id := range snapshot.Revisions {
		if !flowCellExists(id) {
			delete(snapshot.Revisions, id)
		}
	}
	for id := range snapshot.FlowCells {
		if _, ok := snapshot.Revisions[id]; !ok {
			snapshot.Revisions[id] = 1
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.machines {
		cloned.machines[k] = cloneMachine(v)
	}
	for k, v := range s.barcodeSets {
		cloned.barcodeSets[k] = cloneBarcodeSet(v)
	}
	for k, v := range s.flowcells {
		cloned.flowcells[k] = cloneFlowCell(v)
	}
	for k, v := range s.libraries {
		cloned.libraries[k] = cloneLibrary(v)
	}
	for k, v := range s.histograms {
		cloned.histograms[k] = cloneHistogram(v)
	}
	for k, v := range s.messages {
		cloned.messages[k] = cloneMessage(v)
	}
	for k, v := range s.revisions {
		cloned.revisions[k] = v
	}
	return cloned
}

func cloneMachine(m SequencingMachine) SequencingMachine {
	cp := m
	cp.Description = cloneStringPtr(m.Description)
	return cp
}

func cloneBarcodeSet(b BarcodeSet) BarcodeSet {
	cp := b
	cp.Description = cloneStringPtr(b.Description)
	cp.Entries = append([]BarcodeSetEntry(nil), b.Entries...)
	return cp
}

func cloneFlowCell(f FlowCell) FlowCell {
	cp := f
	cp.Description = cloneStringPtr(f.Description)
	if f.BarcodeMismatches != nil {
		v := *f.BarcodeMismatches
		cp.BarcodeMismatches = &v
	}
	return cp
}

func cloneLibrary(l Library) Library {
	cp := l
	cp.LaneNumbers = append([]int(nil), l.LaneNumbers...)
	return cp
}

func cloneHistogram(h LaneIndexHistogram) LaneIndexHistogram {
	cp := h
	if h.Histogram != nil {
		cp.Histogram = make(map[string]int, len(h.Histogram))
		for seq, count := range h.Histogram {
			cp.Histogram[seq] = count
		}
	}
	return cp
}

func cloneMessage(m Message) Message {
	cp := m
	cp.Tags = append([]string(nil), m.Tags...)
	cp.AttachmentKeys = append([]string(nil), m.AttachmentKeys...)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	touched map[string]struct{}
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListSequencingMachines returns all sequencers ordered by vendor ID.
func (v transactionView) ListSequencingMachines() []SequencingMachine {
	out := make([]SequencingMachine, 0, len(v.state.machines))
	for _, m := range v.state.machines {
		out = append(out, cloneMachine(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VendorID != out[j].VendorID {
			return out[i].VendorID < out[j].VendorID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListBarcodeSets returns all barcode sets ordered by name.
func (v transactionView) ListBarcodeSets() []BarcodeSet {
	out := make([]BarcodeSet, 0, len(v.state.barcodeSets))
	for _, b := range v.state.barcodeSets {
		out = append(out, cloneBarcodeSet(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListFlowCells returns all flow cells ordered by run date descending, then
// run number descending.
func (v transactionView) ListFlowCells() []FlowCell {
	out := make([]FlowCell, 0, len(v.state.flowcells))
	for _, f := range v.state.flowcells {
		out = append(out, cloneFlowCell(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RunDate.Equal(out[j].RunDate) {
			return out[i].RunDate.After(out[j].RunDate)
		}
		if out[i].RunNumber != out[j].RunNumber {
			return out[i].RunNumber > out[j].RunNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListLibraries returns the flow cell's libraries ordered by name.
func (v transactionView) ListLibraries(flowCellID string) []Library {
	var out []Library
	for _, l := range v.state.libraries {
		if l.FlowCellID == flowCellID {
			out = append(out, cloneLibrary(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListIndexHistograms returns the flow cell's histograms ordered by lane,
// then index read.
func (v transactionView) ListIndexHistograms(flowCellID string) []LaneIndexHistogram {
	var out []LaneIndexHistogram
	for _, h := range v.state.histograms {
		if h.FlowCellID == flowCellID {
			out = append(out, cloneHistogram(h))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lane != out[j].Lane {
			return out[i].Lane < out[j].Lane
		}
		return out[i].IndexRead < out[j].IndexRead
	})
	return out
}

// ListMessages returns the flow cell's messages ordered by creation time.
func (v transactionView) ListMessages(flowCellID string) []Message {
	var out []Message
	for _, m := range v.state.messages {
		if m.FlowCellID == flowCellID {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindSequencingMachine retrieves a sequencer by ID.
func (v transactionView) FindSequencingMachine(id string) (SequencingMachine, bool) {
	m, ok := v.state.machines[id]
	if !ok {
		return SequencingMachine{}, false
	}
	return cloneMachine(m), true
}

// FindBarcodeEntry retrieves a barcode entry by ID across all sets.
func (v transactionView) FindBarcodeEntry(id string) (BarcodeSetEntry, bool) {
	for _, set := range v.state.barcodeSets {
		for _, entry := range set.Entries {
			if entry.ID == id {
				return entry, true
			}
		}
	}
	return BarcodeSetEntry{}, false
}

// FindFlowCell retrieves a flow cell by ID.
func (v transactionView) FindFlowCell(id string) (FlowCell, bool) {
	f, ok := v.state.flowcells[id]
	if !ok {
		return FlowCell{}, false
	}
	return cloneFlowCell(f), true
}

// FindLibrary retrieves a library by ID.
func (v transactionView) FindLibrary(id string) (Library, bool) {
	l, ok := v.state.libraries[id]
	if !ok {
		return Library{}, false
	}
	return cloneLibrary(l), true
}

// FlowCellRevision returns the current data revision, zero when unknown.
func (v transactionView) FlowCellRevision(id string) uint64 {
	return v.state.revisions[id]
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Rules evaluate against the mutated copy; blocking violations roll
// the transaction back. Committed changes bump the revision counter of every
// touched flow cell.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store:   s,
		state:   s.state.clone(),
		touched: make(map[string]struct{}),
		now:     s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	for id := range tx.touched {
		if _, ok := tx.state.flowcells[id]; ok {
			tx.state.revisions[id]++
		} else {
			delete(tx.state.revisions, id)
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

// GetFlowCell retrieves a flow cell by ID.
func (s *Store) GetFlowCell(id string) (FlowCell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindFlowCell(id)
}

// ListFlowCells lists flow cells ordered by run date descending.
func (s *Store) ListFlowCells() []FlowCell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListFlowCells()
}

// ListLibraries lists the flow cell's libraries ordered by name.
func (s *Store) ListLibraries(flowCellID string) []Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListLibraries(flowCellID)
}

// ListIndexHistograms lists the flow cell's histograms by lane and read.
func (s *Store) ListIndexHistograms(flowCellID string) []LaneIndexHistogram {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListIndexHistograms(flowCellID)
}

// ListMessages lists the flow cell's messages by creation time.
func (s *Store) ListMessages(flowCellID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListMessages(flowCellID)
}

// ListSequencingMachines lists all sequencers by vendor ID.
func (s *Store) ListSequencingMachines() []SequencingMachine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListSequencingMachines()
}

// ListBarcodeSets lists all barcode sets by name.
func (s *Store) ListBarcodeSets() []BarcodeSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListBarcodeSets()
}

// FlowCellRevision returns the flow cell's data revision, zero when unknown.
func (s *Store) FlowCellRevision(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.revisions[id]
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) touch(flowCellID string) {
	if flowCellID != "" {
		tx.touched[flowCellID] = struct{}{}
	}
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindFlowCell exposes flow cell lookup within the transaction scope.
func (tx *transaction) FindFlowCell(id string) (FlowCell, bool) {
	f, ok := tx.state.flowcells[id]
	if !ok {
		return FlowCell{}, false
	}
	return cloneFlowCell(f), true
}

// FindMessage exposes message lookup within the transaction scope.
func (tx *transaction) FindMessage(id string) (Message, bool) {
	m, ok := tx.state.messages[id]
	if !ok {
		return Message{}, false
	}
	return cloneMessage(m), true
}

// CreateSequencingMachine stores a new sequencer within the transaction.
func (tx *transaction) CreateSequencingMachine(m SequencingMachine) (SequencingMachine, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.machines[m.ID]; exists {
		return SequencingMachine{}, fmt.Errorf("sequencing machine %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.machines[m.ID] = cloneMachine(m)
	tx.recordChange(Change{Entity: domain.EntitySequencingMachine, Action: domain.ActionCreate, After: cloneMachine(m)})
	return cloneMachine(m), nil
}

// UpdateSequencingMachine mutates a sequencer using the provided mutator.
func (tx *transaction) UpdateSequencingMachine(id string, mutator func(*SequencingMachine) error) (SequencingMachine, error) {
	current, ok := tx.state.machines[id]
	if !ok {
		return SequencingMachine{}, fmt.Errorf("sequencing machine %q not found", id)
	}
	before := cloneMachine(current)
	if err := mutator(&current); err != nil {
		return SequencingMachine{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.machines[id] = cloneMachine(current)
	tx.recordChange(Change{Entity: domain.EntitySequencingMachine, Action: domain.ActionUpdate, Before: before, After: cloneMachine(current)})
	return cloneMachine(current), nil
}

// DeleteSequencingMachine removes a sequencer. Flow cells still referencing
// it make the commit fail through the reference integrity rule.
func (tx *transaction) DeleteSequencingMachine(id string) error {
	current, ok := tx.state.machines[id]
	if !ok {
		return fmt.Errorf("sequencing machine %q not found", id)
	}
	delete(tx.state.machines, id)
	tx.recordChange(Change{Entity: domain.EntitySequencingMachine, Action: domain.ActionDelete, Before: cloneMachine(current)})
	return nil
}

// CreateBarcodeSet stores a new barcode set. Entries without IDs get one
// assigned so libraries can reference them.
func (tx *transaction) CreateBarcodeSet(b BarcodeSet) (BarcodeSet, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if _, exists := tx.state.barcodeSets[b.ID]; exists {
		return BarcodeSet{}, fmt.Errorf("barcode set %q already exists", b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	for i := range b.Entries {
		if b.Entries[i].ID == "" {
			b.Entries[i].ID = tx.store.newID()
		}
	}
	tx.state.barcodeSets[b.ID] = cloneBarcodeSet(b)
	tx.recordChange(Change{Entity: domain.EntityBarcodeSet, Action: domain.ActionCreate, After: cloneBarcodeSet(b)})
	return cloneBarcodeSet(b), nil
}

// UpdateBarcodeSet mutates a barcode set.
func (tx *transaction) UpdateBarcodeSet(id string, mutator func(*BarcodeSet) error) (BarcodeSet, error) {
	current, ok := tx.state.barcodeSets[id]
	if !ok {
		return BarcodeSet{}, fmt.Errorf("barcode set %q not found", id)
	}
	before := cloneBarcodeSet(current)
	if err := mutator(&current); err != nil {
		return BarcodeSet{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	for i := range current.Entries {
		if current.Entries[i].ID == "" {
			current.Entries[i].ID = tx.store.newID()
		}
	}
	tx.state.barcodeSets[id] = cloneBarcodeSet(current)
	tx.recordChange(Change{Entity: domain.EntityBarcodeSet, Action: domain.ActionUpdate, Before: before, After: cloneBarcodeSet(current)})
	return cloneBarcodeSet(current), nil
}

// DeleteBarcodeSet removes a barcode set. Libraries still referencing its
// entries make the commit fail through the reference integrity rule.
func (tx *transaction) DeleteBarcodeSet(id string) error {
	current, ok := tx.state.barcodeSets[id]
	if !ok {
		return fmt.Errorf("barcode set %q not found", id)
	}
	delete(tx.state.barcodeSets, id)
	tx.recordChange(Change{Entity: domain.EntityBarcodeSet, Action: domain.ActionDelete, Before: cloneBarcodeSet(current)})
	return nil
}

// CreateFlowCell stores a new flow cell within the transaction.
func (tx *transaction) CreateFlowCell(f FlowCell) (FlowCell, error) {
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	if _, exists := tx.state.flowcells[f.ID]; exists {
		return FlowCell{}, fmt.Errorf("flow cell %q already exists", f.ID)
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.flowcells[f.ID] = cloneFlowCell(f)
	tx.touch(f.ID)
	tx.recordChange(Change{Entity: domain.EntityFlowCell, Action: domain.ActionCreate, After: cloneFlowCell(f)})
	return cloneFlowCell(f), nil
}

// UpdateFlowCell mutates a flow cell.
func (tx *transaction) UpdateFlowCell(id string, mutator func(*FlowCell) error) (FlowCell, error) {
	current, ok := tx.state.flowcells[id]
	if !ok {
		return FlowCell{}, fmt.Errorf("flow cell %q not found", id)
	}
	before := cloneFlowCell(current)
	if err := mutator(&current); err != nil {
		return FlowCell{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.flowcells[id] = cloneFlowCell(current)
	tx.touch(id)
	tx.recordChange(Change{Entity: domain.EntityFlowCell, Action: domain.ActionUpdate, Before: before, After: cloneFlowCell(current)})
	return cloneFlowCell(current), nil
}

// DeleteFlowCell removes a flow cell and cascades to its libraries,
// histograms, and messages.
func (tx *transaction) DeleteFlowCell(id string) error {
	current, ok := tx.state.flowcells[id]
	if !ok {
		return fmt.Errorf("flow cell %q not found", id)
	}
	for libID, library := range tx.state.libraries {
		if library.FlowCellID == id {
			delete(tx.state.libraries, libID)
		}
	}
	for histID, histogram := range tx.state.histograms {
		if histogram.FlowCellID == id {
			delete(tx.state.histograms, histID)
		}
	}
	for msgID, message := range tx.state.messages {
		if message.FlowCellID == id {
			delete(tx.state.messages, msgID)
		}
	}
	delete(tx.state.flowcells, id)
	tx.touch(id)
	tx.recordChange(Change{Entity: domain.EntityFlowCell, Action: domain.ActionDelete, Before: cloneFlowCell(current)})
	return nil
}

// CreateLibrary stores a new library. The owning flow cell must exist.
func (tx *transaction) CreateLibrary(l Library) (Library, error) {
	if l.ID == "" {
		l.ID = tx.store.newID()
	}
	if _, exists := tx.state.libraries[l.ID]; exists {
		return Library{}, fmt.Errorf("library %q already exists", l.ID)
	}
	if _, ok := tx.state.flowcells[l.FlowCellID]; !ok {
		return Library{}, fmt.Errorf("flow cell %q not found", l.FlowCellID)
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.libraries[l.ID] = cloneLibrary(l)
	tx.touch(l.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityLibrary, Action: domain.ActionCreate, After: cloneLibrary(l)})
	return cloneLibrary(l), nil
}

// UpdateLibrary mutates a library.
func (tx *transaction) UpdateLibrary(id string, mutator func(*Library) error) (Library, error) {
	current, ok := tx.state.libraries[id]
	if !ok {
		return Library{}, fmt.Errorf("library %q not found", id)
	}
	before := cloneLibrary(current)
	if err := mutator(&current); err != nil {
		return Library{}, err
	}
	if _, ok := tx.state.flowcells[current.FlowCellID]; !ok {
		return Library{}, fmt.Errorf("flow cell %q not found", current.FlowCellID)
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.libraries[id] = cloneLibrary(current)
	tx.touch(before.FlowCellID)
	tx.touch(current.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityLibrary, Action: domain.ActionUpdate, Before: before, After: cloneLibrary(current)})
	return cloneLibrary(current), nil
}

// DeleteLibrary removes a library.
func (tx *transaction) DeleteLibrary(id string) error {
	current, ok := tx.state.libraries[id]
	if !ok {
		return fmt.Errorf("library %q not found", id)
	}
	delete(tx.state.libraries, id)
	tx.touch(current.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityLibrary, Action: domain.ActionDelete, Before: cloneLibrary(current)})
	return nil
}

// SetLaneIndexHistogram upserts histogram data keyed by (flow cell, lane,
// index read). A matching record is replaced in place, keeping its identity.
func (tx *transaction) SetLaneIndexHistogram(h LaneIndexHistogram) (LaneIndexHistogram, error) {
	if _, ok := tx.state.flowcells[h.FlowCellID]; !ok {
		return LaneIndexHistogram{}, fmt.Errorf("flow cell %q not found", h.FlowCellID)
	}
	for _, existing := range tx.state.histograms {
		if existing.FlowCellID == h.FlowCellID && existing.Lane == h.Lane && existing.IndexRead == h.IndexRead {
			before := cloneHistogram(existing)
			h.ID = existing.ID
			h.CreatedAt = existing.CreatedAt
			h.UpdatedAt = tx.now
			tx.state.histograms[h.ID] = cloneHistogram(h)
			tx.touch(h.FlowCellID)
			tx.recordChange(Change{Entity: domain.EntityIndexHistogram, Action: domain.ActionUpdate, Before: before, After: cloneHistogram(h)})
			return cloneHistogram(h), nil
		}
	}
	if h.ID == "" {
		h.ID = tx.store.newID()
	}
	h.CreatedAt = tx.now
	h.UpdatedAt = tx.now
	tx.state.histograms[h.ID] = cloneHistogram(h)
	tx.touch(h.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityIndexHistogram, Action: domain.ActionCreate, After: cloneHistogram(h)})
	return cloneHistogram(h), nil
}

// DeleteLaneIndexHistogram removes one histogram record.
func (tx *transaction) DeleteLaneIndexHistogram(id string) error {
	current, ok := tx.state.histograms[id]
	if !ok {
		return fmt.Errorf("index histogram %q not found", id)
	}
	delete(tx.state.histograms, id)
	tx.touch(current.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityIndexHistogram, Action: domain.ActionDelete, Before: cloneHistogram(current)})
	return nil
}

// CreateMessage stores a new message. The owning flow cell must exist and
// new messages start as drafts unless explicitly marked sent.
func (tx *transaction) CreateMessage(m Message) (Message, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.messages[m.ID]; exists {
		return Message{}, fmt.Errorf("message %q already exists", m.ID)
	}
	if _, ok := tx.state.flowcells[m.FlowCellID]; !ok {
		return Message{}, fmt.Errorf("flow cell %q not found", m.FlowCellID)
	}
	if m.State == "" {
		m.State = domain.MessageStateDraft
	}
	if m.BodyFormat == "" {
		m.BodyFormat = domain.BodyFormatPlain
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.messages[m.ID] = cloneMessage(m)
	tx.touch(m.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityMessage, Action: domain.ActionCreate, After: cloneMessage(m)})
	return cloneMessage(m), nil
}

// UpdateMessage mutates a message.
func (tx *transaction) UpdateMessage(id string, mutator func(*Message) error) (Message, error) {
	current, ok := tx.state.messages[id]
	if !ok {
		return Message{}, fmt.Errorf("message %q not found", id)
	}
	before := cloneMessage(current)
	if err := mutator(&current); err != nil {
		return Message{}, err
	}
	if _, ok := tx.state.flowcells[current.FlowCellID]; !ok {
		return Message{}, fmt.Errorf("flow cell %q not found", current.FlowCellID)
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.messages[id] = cloneMessage(current)
	tx.touch(before.FlowCellID)
	tx.touch(current.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityMessage, Action: domain.ActionUpdate, Before: before, After: cloneMessage(current)})
	return cloneMessage(current), nil
}

// DeleteMessage removes a message.
func (tx *transaction) DeleteMessage(id string) error {
	current, ok := tx.state.messages[id]
	if !ok {
		return fmt.Errorf("message %q not found", id)
	}
	delete(tx.state.messages, id)
	tx.touch(current.FlowCellID)
	tx.recordChange(Change{Entity: domain.EntityMessage, Action: domain.ActionDelete, Before: cloneMessage(current)})
	return nil
}
