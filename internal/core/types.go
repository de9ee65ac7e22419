package core

import "flowcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Status             = domain.Status
	Severity           = domain.Severity
	Base               = domain.Base
	SequencingMachine  = domain.SequencingMachine
	BarcodeSet         = domain.BarcodeSet
	BarcodeSetEntry    = domain.BarcodeSetEntry
	Barcode            = domain.Barcode
	BarcodeResolver    = domain.BarcodeResolver
	FlowCell           = domain.FlowCell
	Library            = domain.Library
	LaneIndexHistogram = domain.LaneIndexHistogram
	Message            = domain.Message
	SampleSheetReport  = domain.SampleSheetReport
	IndexKey           = domain.IndexKey
	IndexReport        = domain.IndexReport
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
)

const (
	EntitySequencingMachine = domain.EntitySequencingMachine
	EntityBarcodeSet        = domain.EntityBarcodeSet
	EntityFlowCell          = domain.EntityFlowCell
	EntityLibrary           = domain.EntityLibrary
	EntityIndexHistogram    = domain.EntityIndexHistogram
	EntityMessage           = domain.EntityMessage
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	FieldName     = domain.FieldName
	FieldLane     = domain.FieldLane
	FieldBarcode  = domain.FieldBarcode
	FieldBarcode2 = domain.FieldBarcode2
)
