// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by flowcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySequencingMachine identifies a sequencer record.
	EntitySequencingMachine EntityType = "sequencing_machine"
	// EntityBarcodeSet identifies a shared barcode set record.
	EntityBarcodeSet EntityType = "barcode_set"
	// EntityFlowCell identifies a flow cell record.
	EntityFlowCell EntityType = "flow_cell"
	// EntityLibrary identifies a library record.
	EntityLibrary EntityType = "library"
	// EntityIndexHistogram identifies a per-lane index histogram record.
	EntityIndexHistogram EntityType = "lane_index_histogram"
	// EntityMessage identifies a message attached to a flow cell.
	EntityMessage EntityType = "message"
)

// Status captures the workflow state of a flow cell's sequencing, conversion,
// or delivery track. Not every value is meaningful on every track: ready and
// skipped only apply to conversion.
type Status string

// Canonical workflow statuses.
const (
	StatusInitial          Status = "initial"
	StatusReady            Status = "ready"
	StatusInProgress       Status = "in_progress"
	StatusComplete         Status = "complete"
	StatusCompleteWarnings Status = "complete_warnings"
	StatusFailed           Status = "failed"
	StatusClosed           Status = "closed"
	StatusCanceled         Status = "canceled"
	StatusSkipped          Status = "skipped"
)

// DeliveryType selects what is handed over to the requester.
type DeliveryType string

// Delivery options: sequences (FASTQ), base calls (BCL), or both.
const (
	DeliverySequences DeliveryType = "seq"
	DeliveryBaseCalls DeliveryType = "bcl"
	DeliveryBoth      DeliveryType = "seq_bcl"
)

// RTAVersion is the major RTA version of a run; it implies the demultiplexing
// software generation.
type RTAVersion int

const (
	RTAVersionOther RTAVersion = 0
	RTAVersionV1    RTAVersion = 1
	RTAVersionV2    RTAVersion = 2
)

// IndexWorkflow distinguishes the dual indexing workflows of a sequencer
// model. Workflow B machines read the second index as reverse complement.
type IndexWorkflow string

const (
	IndexWorkflowA IndexWorkflow = "A"
	IndexWorkflowB IndexWorkflow = "B"
)

// MessageState tracks whether a message is still editable.
type MessageState string

const (
	MessageStateDraft MessageState = "draft"
	MessageStateSent  MessageState = "sent"
)

// BodyFormat is the MIME type of a message body.
type BodyFormat string

const (
	BodyFormatPlain    BodyFormat = "text/plain"
	BodyFormatMarkdown BodyFormat = "text/markdown"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SequencingMachine describes one sequencer known to the lab.
type SequencingMachine struct {
	Base
	VendorID          string        `json:"vendor_id"`
	Label             string        `json:"label"`
	Description       *string       `json:"description,omitempty"`
	MachineModel      string        `json:"machine_model"`
	SlotCount         int           `json:"slot_count"`
	DualIndexWorkflow IndexWorkflow `json:"dual_index_workflow"`
}

// BarcodeSetEntry is one named barcode sequence within a set.
type BarcodeSetEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// BarcodeSet is a shared, named collection of barcode sequences that
// libraries reference instead of entering sequences by hand.
type BarcodeSet struct {
	Base
	Name        string            `json:"name"`
	ShortName   string            `json:"short_name"`
	Description *string           `json:"description,omitempty"`
	Entries     []BarcodeSetEntry `json:"entries"`
}

// FlowCell is the information stored for each flow cell.
type FlowCell struct {
	Base
	VendorID            string       `json:"vendor_id"`
	Label               string       `json:"label,omitempty"`
	ManualLabel         string       `json:"manual_label,omitempty"`
	Description         *string      `json:"description,omitempty"`
	RunDate             time.Time    `json:"run_date"`
	RunNumber           int          `json:"run_number"`
	Slot                string       `json:"slot"`
	SequencingMachineID string       `json:"sequencing_machine_id"`
	NumLanes            int          `json:"num_lanes"`
	Operator            string       `json:"operator,omitempty"`
	RTAVersion          RTAVersion   `json:"rta_version"`
	StatusSequencing    Status       `json:"status_sequencing"`
	StatusConversion    Status       `json:"status_conversion"`
	StatusDelivery      Status       `json:"status_delivery"`
	DeliveryType        DeliveryType `json:"delivery_type"`
	PlannedReads        string       `json:"planned_reads,omitempty"`
	CurrentReads        string       `json:"current_reads,omitempty"`
	BarcodeMismatches   *int         `json:"barcode_mismatches,omitempty"`
}

// Library is one sample library placed on a flow cell. Lane numbers reference
// physical lanes in [1, NumLanes] of the owning flow cell; the checkers
// report out-of-range lanes rather than rejecting them.
type Library struct {
	Base
	FlowCellID  string  `json:"flow_cell_id"`
	Name        string  `json:"name"`
	Reference   string  `json:"reference,omitempty"`
	Barcode     Barcode `json:"barcode"`
	Barcode2    Barcode `json:"barcode2"`
	LaneNumbers []int   `json:"lane_numbers"`
}

// LaneIndexHistogram holds the observed index-sequence distribution for one
// lane and index read of a flow cell, unique per (flow cell, lane, read).
type LaneIndexHistogram struct {
	Base
	FlowCellID string         `json:"flow_cell_id"`
	Lane       int            `json:"lane"`
	IndexRead  int            `json:"index_read"`
	SampleSize int            `json:"sample_size"`
	Histogram  map[string]int `json:"histogram"`
}

// Message is a note attached to a flow cell, optionally carrying attachments
// stored in the blob store under the listed keys.
type Message struct {
	Base
	FlowCellID     string       `json:"flow_cell_id"`
	Author         string       `json:"author,omitempty"`
	State          MessageState `json:"state"`
	BodyFormat     BodyFormat   `json:"body_format"`
	Tags           []string     `json:"tags,omitempty"`
	Subject        string       `json:"subject,omitempty"`
	Body           string       `json:"body"`
	AttachmentKeys []string     `json:"attachment_keys,omitempty"`
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn reports a diagnostic but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
