package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"flowcore/internal/blob"
	"flowcore/pkg/domain"
)

// ErrNotFound is returned when reference validation fails within service helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Service exposes higher-level transactional operations for the flow cell
// schema plus the validation entry points consumed by the presentation layer.
type Service struct {
	store   domain.PersistentStore
	blobs   blob.Store
	cache   *ReportCache
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger installs a logger; the default discards everything.
func WithLogger(logger Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithAuditRecorder installs an audit recorder for mutating operations.
func WithAuditRecorder(audit AuditRecorder) Option {
	return func(s *Service) { s.audit = audit }
}

// WithClock overrides the time source used for durations and audit stamps.
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBlobStore installs the attachment store backing message attachments.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cache:   NewReportCache(),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

var operationMetadata = map[string]struct {
	entity EntityType
	action Action
}{
	"create_sequencing_machine": {EntitySequencingMachine, ActionCreate},
	"update_sequencing_machine": {EntitySequencingMachine, ActionUpdate},
	"delete_sequencing_machine": {EntitySequencingMachine, ActionDelete},
	"create_barcode_set":        {EntityBarcodeSet, ActionCreate},
	"update_barcode_set":        {EntityBarcodeSet, ActionUpdate},
	"delete_barcode_set":        {EntityBarcodeSet, ActionDelete},
	"create_flow_cell":          {EntityFlowCell, ActionCreate},
	"update_flow_cell":          {EntityFlowCell, ActionUpdate},
	"delete_flow_cell":          {EntityFlowCell, ActionDelete},
	"create_library":            {EntityLibrary, ActionCreate},
	"update_library":            {EntityLibrary, ActionUpdate},
	"delete_library":            {EntityLibrary, ActionDelete},
	"set_index_histogram":       {EntityIndexHistogram, ActionUpdate},
	"delete_index_histogram":    {EntityIndexHistogram, ActionDelete},
	"create_message":            {EntityMessage, ActionCreate},
	"update_message":            {EntityMessage, ActionUpdate},
	"delete_message":            {EntityMessage, ActionDelete},
	"send_message":              {EntityMessage, ActionUpdate},
}

// transact wraps a store transaction with tracing, metrics, audit, and
// warning propagation to the logger. entityID may point at a variable the
// callback fills in (created records get their ID inside fn).
func (s *Service) transact(ctx context.Context, operation string, entityID *string, fn func(tx domain.Transaction) error) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = *entityID
	}
	s.recordAudit(ctx, operation, id, err, duration)

	if err != nil {
		s.logger.Error("transaction failed", "operation", operation, "error", err)
		return res, err
	}
	for _, warning := range res.Warnings() {
		s.logger.Warn("rule violation", "rule", warning.Rule, "message", warning.Message)
	}
	return res, nil
}

// view wraps a read-only store access with tracing and metrics.
func (s *Service) view(ctx context.Context, operation string, fn func(v domain.TransactionView) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := s.store.View(ctx, fn)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	return err
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, err error, duration time.Duration) {
	meta, ok := operationMetadata[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		EntityID:  entityID,
		Action:    meta.action,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// CreateSequencingMachine persists a new sequencer record.
func (s *Service) CreateSequencingMachine(ctx context.Context, machine SequencingMachine) (SequencingMachine, Result, error) {
	var created SequencingMachine
	var id string
	res, err := s.transact(ctx, "create_sequencing_machine", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateSequencingMachine(machine)
		id = created.ID
		return err
	})
	return created, res, err
}

// UpdateSequencingMachine mutates a sequencer record.
func (s *Service) UpdateSequencingMachine(ctx context.Context, id string, mutator func(*SequencingMachine) error) (SequencingMachine, Result, error) {
	var updated SequencingMachine
	res, err := s.transact(ctx, "update_sequencing_machine", &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateSequencingMachine(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteSequencingMachine removes a sequencer record.
func (s *Service) DeleteSequencingMachine(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_sequencing_machine", &id, func(tx domain.Transaction) error {
		return tx.DeleteSequencingMachine(id)
	})
}

// CreateBarcodeSet persists a new barcode set with its entries.
func (s *Service) CreateBarcodeSet(ctx context.Context, set BarcodeSet) (BarcodeSet, Result, error) {
	var created BarcodeSet
	var id string
	res, err := s.transact(ctx, "create_barcode_set", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateBarcodeSet(set)
		id = created.ID
		return err
	})
	return created, res, err
}

// UpdateBarcodeSet mutates a barcode set.
func (s *Service) UpdateBarcodeSet(ctx context.Context, id string, mutator func(*BarcodeSet) error) (BarcodeSet, Result, error) {
	var updated BarcodeSet
	res, err := s.transact(ctx, "update_barcode_set", &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateBarcodeSet(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteBarcodeSet removes a barcode set.
func (s *Service) DeleteBarcodeSet(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_barcode_set", &id, func(tx domain.Transaction) error {
		return tx.DeleteBarcodeSet(id)
	})
}

// CreateFlowCell persists a new flow cell.
func (s *Service) CreateFlowCell(ctx context.Context, flowCell FlowCell) (FlowCell, Result, error) {
	var created FlowCell
	var id string
	res, err := s.transact(ctx, "create_flow_cell", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateFlowCell(flowCell)
		id = created.ID
		return err
	})
	return created, res, err
}

// UpdateFlowCell mutates a flow cell using the provided mutator.
func (s *Service) UpdateFlowCell(ctx context.Context, id string, mutator func(*FlowCell) error) (FlowCell, Result, error) {
	var updated FlowCell
	res, err := s.transact(ctx, "update_flow_cell", &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateFlowCell(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteFlowCell removes a flow cell together with its libraries, histograms,
// and messages, and drops any cached validation reports.
func (s *Service) DeleteFlowCell(ctx context.Context, id string) (Result, error) {
	res, err := s.transact(ctx, "delete_flow_cell", &id, func(tx domain.Transaction) error {
		return tx.DeleteFlowCell(id)
	})
	if err == nil {
		s.cache.Invalidate(id)
	}
	return res, err
}

// CreateLibrary persists a new library on its flow cell.
func (s *Service) CreateLibrary(ctx context.Context, library Library) (Library, Result, error) {
	var created Library
	var id string
	res, err := s.transact(ctx, "create_library", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateLibrary(library)
		id = created.ID
		return err
	})
	return created, res, err
}

// UpdateLibrary mutates a library.
func (s *Service) UpdateLibrary(ctx context.Context, id string, mutator func(*Library) error) (Library, Result, error) {
	var updated Library
	res, err := s.transact(ctx, "update_library", &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateLibrary(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteLibrary removes a library.
func (s *Service) DeleteLibrary(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_library", &id, func(tx domain.Transaction) error {
		return tx.DeleteLibrary(id)
	})
}

// SetLaneIndexHistogram upserts histogram data keyed by (flow cell, lane,
// index read), the unit delivered by sequencer-metadata ingestion.
func (s *Service) SetLaneIndexHistogram(ctx context.Context, histogram LaneIndexHistogram) (LaneIndexHistogram, Result, error) {
	var stored LaneIndexHistogram
	var id string
	res, err := s.transact(ctx, "set_index_histogram", &id, func(tx domain.Transaction) error {
		var err error
		stored, err = tx.SetLaneIndexHistogram(histogram)
		id = stored.ID
		return err
	})
	return stored, res, err
}

// DeleteLaneIndexHistogram removes one histogram record.
func (s *Service) DeleteLaneIndexHistogram(ctx context.Context, id string) (Result, error) {
	return s.transact(ctx, "delete_index_histogram", &id, func(tx domain.Transaction) error {
		return tx.DeleteLaneIndexHistogram(id)
	})
}

// CreateMessage persists a new message attached to a flow cell.
func (s *Service) CreateMessage(ctx context.Context, message Message) (Message, Result, error) {
	var created Message
	var id string
	res, err := s.transact(ctx, "create_message", &id, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateMessage(message)
		id = created.ID
		return err
	})
	return created, res, err
}

// UpdateMessage mutates a message.
func (s *Service) UpdateMessage(ctx context.Context, id string, mutator func(*Message) error) (Message, Result, error) {
	var updated Message
	res, err := s.transact(ctx, "update_message", &id, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateMessage(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteMessage removes a message and its stored attachments.
func (s *Service) DeleteMessage(ctx context.Context, id string) (Result, error) {
	var keys []string
	res, err := s.transact(ctx, "delete_message", &id, func(tx domain.Transaction) error {
		message, ok := tx.FindMessage(id)
		if !ok {
			return ErrNotFound{Entity: EntityMessage, ID: id}
		}
		keys = append([]string(nil), message.AttachmentKeys...)
		return tx.DeleteMessage(id)
	})
	if err == nil && s.blobs != nil {
		for _, key := range keys {
			if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.logger.Warn("delete attachment", "key", key, "error", delErr)
			}
		}
	}
	return res, err
}

// SendMessage publishes a draft message. Sending twice is an error.
func (s *Service) SendMessage(ctx context.Context, id string) (Message, Result, error) {
	var sent Message
	res, err := s.transact(ctx, "send_message", &id, func(tx domain.Transaction) error {
		var err error
		sent, err = tx.UpdateMessage(id, func(m *Message) error {
			if m.State != domain.MessageStateDraft {
				return fmt.Errorf("message %s is not a draft", id)
			}
			m.State = domain.MessageStateSent
			return nil
		})
		return err
	})
	return sent, res, err
}

// AttachMessageFile stores the reader's content in the blob store and links
// it to the message. The blob write happens first; a failed link removes the
// orphaned blob again.
func (s *Service) AttachMessageFile(ctx context.Context, messageID, filename, contentType string, r io.Reader) (blob.Info, error) {
	if s.blobs == nil {
		return blob.Info{}, fmt.Errorf("no blob store configured")
	}
	key := attachmentKey(messageID, filename)
	info, err := s.blobs.Put(ctx, key, r, blob.PutOptions{ContentType: contentType})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store attachment: %w", err)
	}
	_, _, err = s.UpdateMessage(ctx, messageID, func(m *Message) error {
		for _, existing := range m.AttachmentKeys {
			if existing == key {
				return nil
			}
		}
		m.AttachmentKeys = append(m.AttachmentKeys, key)
		return nil
	})
	if err != nil {
		if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("rollback attachment", "key", key, "error", delErr)
		}
		return blob.Info{}, err
	}
	return info, nil
}

// OpenMessageAttachment returns the attachment metadata and content.
func (s *Service) OpenMessageAttachment(ctx context.Context, messageID, filename string) (blob.Info, io.ReadCloser, error) {
	if s.blobs == nil {
		return blob.Info{}, nil, fmt.Errorf("no blob store configured")
	}
	return s.blobs.Get(ctx, attachmentKey(messageID, filename))
}

// ListMessageAttachments lists the stored attachments of a message.
func (s *Service) ListMessageAttachments(ctx context.Context, messageID string) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("no blob store configured")
	}
	return s.blobs.List(ctx, "messages/"+messageID+"/")
}

func attachmentKey(messageID, filename string) string {
	return path.Join("messages", messageID, path.Base(filename))
}

// SampleSheetErrors analyzes the flow cell's sample sheet for problems and
// inconsistencies. Results are cached per flow cell data revision; any
// committed change to the flow cell or its records invalidates the entry.
func (s *Service) SampleSheetErrors(ctx context.Context, flowCellID string) (SampleSheetReport, error) {
	var report SampleSheetReport
	err := s.view(ctx, "sample_sheet_errors", func(v domain.TransactionView) error {
		fc, ok := v.FindFlowCell(flowCellID)
		if !ok {
			return ErrNotFound{Entity: EntityFlowCell, ID: flowCellID}
		}
		report = s.cache.SampleSheet(flowCellID, v.FlowCellRevision(flowCellID), func() SampleSheetReport {
			return CheckSampleSheet(fc, v.ListLibraries(flowCellID), v.FindBarcodeEntry)
		})
		return nil
	})
	return report, err
}

// IndexErrors cross-checks the flow cell's index histograms against the
// sample sheet. Cached like SampleSheetErrors.
func (s *Service) IndexErrors(ctx context.Context, flowCellID string) (IndexReport, error) {
	var report IndexReport
	err := s.view(ctx, "index_errors", func(v domain.TransactionView) error {
		fc, ok := v.FindFlowCell(flowCellID)
		if !ok {
			return ErrNotFound{Entity: EntityFlowCell, ID: flowCellID}
		}
		report = s.cache.Index(flowCellID, v.FlowCellRevision(flowCellID), func() IndexReport {
			return CheckIndexHistograms(fc, v.ListLibraries(flowCellID), v.ListIndexHistograms(flowCellID), v.FindBarcodeEntry)
		})
		return nil
	})
	return report, err
}

// FlowCellFullName derives the canonical run folder name, e.g.
// "160303_ST-K12345_0815_A_BCDEFGHIXX_LABEL".
func (s *Service) FlowCellFullName(ctx context.Context, flowCellID string) (string, error) {
	var name string
	err := s.view(ctx, "flow_cell_full_name", func(v domain.TransactionView) error {
		fc, ok := v.FindFlowCell(flowCellID)
		if !ok {
			return ErrNotFound{Entity: EntityFlowCell, ID: flowCellID}
		}
		machineVendorID := ""
		if machine, ok := v.FindSequencingMachine(fc.SequencingMachineID); ok {
			machineVendorID = machine.VendorID
		}
		name = fullFlowCellName(fc, machineVendorID)
		return nil
	})
	return name, err
}

func fullFlowCellName(fc FlowCell, machineVendorID string) string {
	label := fc.ManualLabel
	if label == "" {
		label = fc.Label
	}
	runDate := ""
	if !fc.RunDate.IsZero() {
		runDate = fc.RunDate.Format("060102")
	}
	parts := []string{
		runDate,
		machineVendorID,
		fmt.Sprintf("%04d", fc.RunNumber),
		fc.Slot,
		fc.VendorID,
	}
	if label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, "_")
}

// FindFlowCells returns flow cells whose vendor ID or label contains the
// search term, case-insensitively, preserving store ordering.
func (s *Service) FindFlowCells(ctx context.Context, term string) ([]FlowCell, error) {
	needle := strings.ToLower(term)
	var out []FlowCell
	err := s.view(ctx, "find_flow_cells", func(v domain.TransactionView) error {
		for _, fc := range v.ListFlowCells() {
			if strings.Contains(strings.ToLower(fc.VendorID), needle) ||
				strings.Contains(strings.ToLower(fc.Label), needle) ||
				strings.Contains(strings.ToLower(fc.ManualLabel), needle) {
				out = append(out, fc)
			}
		}
		return nil
	})
	return out, err
}

// FindLibraries returns libraries matching the term exactly by name or by
// one of their resolved barcode sequences.
func (s *Service) FindLibraries(ctx context.Context, term string) ([]Library, error) {
	var out []Library
	err := s.view(ctx, "find_libraries", func(v domain.TransactionView) error {
		for _, fc := range v.ListFlowCells() {
			for _, library := range v.ListLibraries(fc.ID) {
				if library.Name == term ||
					library.Barcode.Resolve(v.FindBarcodeEntry) == term ||
					library.Barcode2.Resolve(v.FindBarcodeEntry) == term {
					out = append(out, library)
				}
			}
		}
		return nil
	})
	return out, err
}
