package core

import (
	"reflect"
	"testing"

	"flowcore/pkg/domain"
)

func sheetLib(id, name string, lanes []int, b1, b2 Barcode) Library {
	lib := Library{Name: name, Barcode: b1, Barcode2: b2, LaneNumbers: lanes}
	lib.ID = id
	return lib
}

func sheetFlowCell(numLanes int) FlowCell {
	fc := FlowCell{NumLanes: numLanes}
	fc.ID = "fc1"
	return fc
}

func noLookup(string) (BarcodeSetEntry, bool) { return BarcodeSetEntry{}, false }

func TestCheckSampleSheetCleanSheet(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "sample_one", []int{1, 2}, domain.BarcodeSeq("ACGT"), Barcode{}),
		sheetLib("L2", "sample-two", []int{1, 2}, domain.BarcodeSeq("TTTT"), Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	if len(report) != 0 {
		t.Fatalf("expected empty report, got %v", report)
	}
}

func TestCheckSampleSheetInvalidName(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{sheetLib("L1", "bad name!", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{})}
	report := CheckSampleSheet(fc, libs, noLookup)
	msgs := report["L1"][FieldName]
	if len(msgs) != 1 {
		t.Fatalf("expected one name error, got %v", report)
	}
	if msgs[0] != "Library names may only contain alphanumeric characters, hyphens, and underscores" {
		t.Fatalf("unexpected message %q", msgs[0])
	}
}

func TestCheckSampleSheetLaneOutOfBounds(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{sheetLib("L1", "ok", []int{2, 9}, domain.BarcodeSeq("ACGT"), Barcode{})}
	report := CheckSampleSheet(fc, libs, noLookup)
	msgs := report["L1"][FieldLane]
	if len(msgs) != 1 {
		t.Fatalf("expected one lane error, got %v", report)
	}
	// Only the offending lane is reported, and singular since there is one.
	if msgs[0] != "Flow cell does not have lane #9" {
		t.Fatalf("unexpected message %q", msgs[0])
	}
}

func TestCheckSampleSheetLaneOutOfBoundsPlural(t *testing.T) {
	fc := sheetFlowCell(2)
	libs := []Library{sheetLib("L1", "ok", []int{1, 3, 4}, domain.BarcodeSeq("ACGT"), Barcode{})}
	report := CheckSampleSheet(fc, libs, noLookup)
	msgs := report["L1"][FieldLane]
	if len(msgs) != 1 || msgs[0] != "Flow cell does not have lanes #3-4" {
		t.Fatalf("unexpected lane errors %v", msgs)
	}
}

func TestCheckSampleSheetDuplicateNameOnSharedLane(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "dup", []int{1, 2}, domain.BarcodeSeq("ACGT"), Barcode{}),
		sheetLib("L2", "dup", []int{2, 3}, domain.BarcodeSeq("TTTT"), Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	for _, id := range []string{"L1", "L2"} {
		msgs := report[id][FieldName]
		if len(msgs) != 1 || msgs[0] != "Library name dup is not unique for lane 2" {
			t.Fatalf("library %s: unexpected name errors %v", id, msgs)
		}
	}
}

func TestCheckSampleSheetSameNameDisjointLanes(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "dup", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{}),
		sheetLib("L2", "dup", []int{2}, domain.BarcodeSeq("TTTT"), Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	if len(report) != 0 {
		t.Fatalf("disjoint lanes must not collide, got %v", report)
	}
}

func TestCheckSampleSheetBarcodeCollisionBothIndices(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "a", []int{1}, domain.BarcodeSeq("ACGT"), domain.BarcodeSeq("GGGG")),
		sheetLib("L2", "b", []int{1}, domain.BarcodeSeq("ACGT"), domain.BarcodeSeq("GGGG")),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	want := "Barcode combination ACGT/GGGG is not unique for lane 1"
	for _, id := range []string{"L1", "L2"} {
		for _, field := range []string{FieldBarcode, FieldBarcode2} {
			msgs := report[id][field]
			if len(msgs) != 1 || msgs[0] != want {
				t.Fatalf("library %s field %s: got %v, want %q", id, field, msgs, want)
			}
		}
	}
}

func TestCheckSampleSheetDualIndexDisambiguates(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "a", []int{1}, domain.BarcodeSeq("ACGT"), domain.BarcodeSeq("GGGG")),
		sheetLib("L2", "b", []int{1}, domain.BarcodeSeq("ACGT"), domain.BarcodeSeq("CCCC")),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	if len(report) != 0 {
		t.Fatalf("differing second index must disambiguate, got %v", report)
	}
}

func TestCheckSampleSheetSingleIndexCollision(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "a", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{}),
		sheetLib("L2", "b", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	want := "Barcode combination ACGT/- is not unique for lane 1"
	for _, id := range []string{"L1", "L2"} {
		if msgs := report[id][FieldBarcode]; len(msgs) != 1 || msgs[0] != want {
			t.Fatalf("library %s: got %v, want %q", id, msgs, want)
		}
		// The unset second index carries no error of its own.
		if msgs := report[id][FieldBarcode2]; len(msgs) != 0 {
			t.Fatalf("library %s: unexpected barcode2 errors %v", id, msgs)
		}
	}
}

func TestCheckSampleSheetNoBarcodesCollide(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "a", []int{1}, Barcode{}, Barcode{}),
		sheetLib("L2", "b", []int{1}, Barcode{}, Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	want := "Barcode combination -/- is not unique for lane 1"
	for _, id := range []string{"L1", "L2"} {
		for _, field := range []string{FieldBarcode, FieldBarcode2} {
			if msgs := report[id][field]; len(msgs) != 1 || msgs[0] != want {
				t.Fatalf("library %s field %s: got %v, want %q", id, field, msgs, want)
			}
		}
	}
}

func TestCheckSampleSheetResolvesBarcodeReferences(t *testing.T) {
	fc := sheetFlowCell(8)
	lookup := func(id string) (BarcodeSetEntry, bool) {
		if id == "e1" {
			return BarcodeSetEntry{ID: "e1", Name: "A01", Sequence: "ACGT"}, true
		}
		return BarcodeSetEntry{}, false
	}
	libs := []Library{
		sheetLib("L1", "a", []int{1}, domain.BarcodeRef("e1"), Barcode{}),
		sheetLib("L2", "b", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, lookup)
	if len(report["L1"][FieldBarcode]) != 1 || len(report["L2"][FieldBarcode]) != 1 {
		t.Fatalf("reference and literal with the same sequence must collide, got %v", report)
	}
}

func TestCheckSampleSheetDanglingReferenceActsUnset(t *testing.T) {
	fc := sheetFlowCell(8)
	libs := []Library{
		sheetLib("L1", "a", []int{1}, domain.BarcodeRef("missing"), Barcode{}),
		sheetLib("L2", "b", []int{1}, Barcode{}, Barcode{}),
	}
	report := CheckSampleSheet(fc, libs, noLookup)
	// Both resolve to the empty combination and therefore collide.
	for _, id := range []string{"L1", "L2"} {
		if len(report[id][FieldBarcode]) != 1 {
			t.Fatalf("library %s: expected collision via empty sequence, got %v", id, report)
		}
	}
}

func TestCheckSampleSheetIdempotent(t *testing.T) {
	fc := sheetFlowCell(2)
	libs := []Library{
		sheetLib("L1", "bad name", []int{1, 5}, domain.BarcodeSeq("ACGT"), Barcode{}),
		sheetLib("L2", "bad name", []int{1}, domain.BarcodeSeq("ACGT"), Barcode{}),
	}
	first := CheckSampleSheet(fc, libs, noLookup)
	second := CheckSampleSheet(fc, libs, noLookup)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs differ:\nfirst:  %v\nsecond: %v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected findings")
	}
}
