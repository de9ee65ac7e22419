package core

import "fmt"

// CheckIndexHistograms cross-checks observed index histograms against the
// sample sheet: every observed sequence that is not all Ns must be expected
// from some library on the histogram's lane. Index read 0 checks against the
// first barcode, any other read number against the second. Observed counts
// are not inspected. Pure and idempotent like CheckSampleSheet.
func CheckIndexHistograms(flowCell FlowCell, libraries []Library, histograms []LaneIndexHistogram, lookup BarcodeResolver) IndexReport {
	report := IndexReport{}
	for _, hist := range histograms {
		if hist.FlowCellID != flowCell.ID {
			continue
		}
		expected := map[string]struct{}{}
		for _, library := range libraries {
			if !onLane(library, hist.Lane) {
				continue
			}
			barcode := library.Barcode
			if hist.IndexRead != 0 {
				barcode = library.Barcode2
			}
			if seq := barcode.Resolve(lookup); seq != "" {
				expected[seq] = struct{}{}
			}
		}
		for seq := range hist.Histogram {
			if allN(seq) {
				continue
			}
			if _, ok := expected[seq]; ok {
				continue
			}
			report.Add(IndexKey{Lane: hist.Lane, IndexRead: hist.IndexRead, Sequence: seq},
				fmt.Sprintf("found barcode %s on lane %d and index read %d in BCLs but not in sample sheet",
					seq, hist.Lane, hist.IndexRead))
		}
	}
	return report
}

func onLane(library Library, lane int) bool {
	for _, l := range library.LaneNumbers {
		if l == lane {
			return true
		}
	}
	return false
}

// allN reports whether every base of the sequence is a masked N read.
func allN(seq string) bool {
	for _, r := range seq {
		if r != 'N' {
			return false
		}
	}
	return true
}
