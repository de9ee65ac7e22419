package core

import (
	"context"
	"testing"

	"flowcore/pkg/domain"
)

func TestReferenceIntegrityRuleCleanState(t *testing.T) {
	view := &stubView{
		machines:  []SequencingMachine{testMachine("m1", "NS501")},
		flowcells: []FlowCell{testFlowCell("fc1", "FC001", "m1", 1)},
		sets: []BarcodeSet{{
			Name:    "AgilentSureSelect",
			Entries: []BarcodeSetEntry{{ID: "e1", Name: "A01", Sequence: "ACGT"}},
		}},
		libraries: map[string][]Library{
			"fc1": {sheetLib("L1", "sample", []int{1}, domain.BarcodeRef("e1"), Barcode{})},
		},
	}
	res, err := NewReferenceIntegrityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}
}

func TestReferenceIntegrityRuleUnknownMachine(t *testing.T) {
	view := &stubView{
		flowcells: []FlowCell{testFlowCell("fc1", "FC001", "m-gone", 1)},
	}
	res, err := NewReferenceIntegrityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected one violation, got %v", res.Violations)
	}
	v := res.Violations[0]
	if v.Severity != domain.SeverityBlock || v.Entity != EntityFlowCell || v.EntityID != "fc1" {
		t.Fatalf("unexpected violation %+v", v)
	}
	if v.Message != "flow cell FC001 references unknown sequencing machine m-gone" {
		t.Fatalf("unexpected message %q", v.Message)
	}
}

func TestReferenceIntegrityRuleDanglingBarcodeEntry(t *testing.T) {
	view := &stubView{
		machines:  []SequencingMachine{testMachine("m1", "NS501")},
		flowcells: []FlowCell{testFlowCell("fc1", "FC001", "m1", 1)},
		libraries: map[string][]Library{
			"fc1": {sheetLib("L1", "sample", []int{1}, domain.BarcodeRef("e-gone"), Barcode{})},
		},
	}
	res, err := NewReferenceIntegrityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected one violation, got %v", res.Violations)
	}
	v := res.Violations[0]
	if v.Entity != EntityLibrary || v.EntityID != "L1" {
		t.Fatalf("unexpected violation %+v", v)
	}
	if v.Message != "library sample barcode references unknown barcode entry e-gone" {
		t.Fatalf("unexpected message %q", v.Message)
	}
}

func TestReferenceIntegrityRuleIgnoresLiteralBarcodes(t *testing.T) {
	view := &stubView{
		machines:  []SequencingMachine{testMachine("m1", "NS501")},
		flowcells: []FlowCell{testFlowCell("fc1", "FC001", "m1", 1)},
		libraries: map[string][]Library{
			"fc1": {sheetLib("L1", "sample", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{})},
		},
	}
	res, err := NewReferenceIntegrityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("literal barcodes need no lookup, got %v", res.Violations)
	}
}
