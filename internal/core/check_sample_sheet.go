package core

import "sort"

// CheckSampleSheet analyzes the libraries of one flow cell for problems and
// inconsistencies: invalid names, lanes outside the flow cell, duplicate
// (lane, name) pairs, and colliding barcode combinations. It is a pure
// function of its inputs: it never mutates them, never aborts on the first
// finding, and produces a structurally identical report on repeated calls.
func CheckSampleSheet(flowCell FlowCell, libraries []Library, lookup BarcodeResolver) SampleSheetReport {
	report := SampleSheetReport{}
	checkLibraryNames(libraries, report)
	checkLaneBounds(flowCell, libraries, report)
	checkNameCollisions(libraries, report)
	checkBarcodeCollisions(libraries, lookup, report)
	return report
}

// distinctLanes returns the sorted distinct lane numbers of a library. A
// library with duplicate lane entries must contribute once per lane, and an
// empty assignment degrades to "no collisions possible".
func distinctLanes(lanes []int) []int {
	if len(lanes) == 0 {
		return nil
	}
	sorted := append([]int(nil), lanes...)
	sort.Ints(sorted)
	out := sorted[:1]
	for _, lane := range sorted[1:] {
		if lane != out[len(out)-1] {
			out = append(out, lane)
		}
	}
	return out
}
