package core

import "fmt"

// checkBarcodeCollisions flags libraries whose resolved (barcode1, barcode2)
// combination collides with another library in the same lane. A clash in only
// one of the two indices is not an error: dual indexing disambiguates as long
// as either index differs. The empty sequence is a valid grouping key, so two
// single-indexed libraries with the same first barcode do collide, as do two
// libraries with no barcodes at all.
func checkBarcodeCollisions(libraries []Library, lookup BarcodeResolver, report SampleSheetReport) {
	type laneSeq struct {
		lane int
		seq  string
	}

	seq1 := make(map[string]string, len(libraries))
	seq2 := make(map[string]string, len(libraries))
	byBarcode1 := map[laneSeq]map[string]struct{}{}
	byBarcode2 := map[laneSeq]map[string]struct{}{}
	for _, library := range libraries {
		seq1[library.ID] = library.Barcode.Resolve(lookup)
		seq2[library.ID] = library.Barcode2.Resolve(lookup)
		for _, lane := range distinctLanes(library.LaneNumbers) {
			key1 := laneSeq{lane: lane, seq: seq1[library.ID]}
			if byBarcode1[key1] == nil {
				byBarcode1[key1] = map[string]struct{}{}
			}
			byBarcode1[key1][library.ID] = struct{}{}
			key2 := laneSeq{lane: lane, seq: seq2[library.ID]}
			if byBarcode2[key2] == nil {
				byBarcode2[key2] = map[string]struct{}{}
			}
			byBarcode2[key2][library.ID] = struct{}{}
		}
	}

	for _, library := range libraries {
		var badLanes []int
		for _, lane := range distinctLanes(library.LaneNumbers) {
			sharing1 := byBarcode1[laneSeq{lane: lane, seq: seq1[library.ID]}]
			sharing2 := byBarcode2[laneSeq{lane: lane, seq: seq2[library.ID]}]
			for other := range sharing1 {
				if other == library.ID {
					continue
				}
				if _, both := sharing2[other]; both {
					badLanes = append(badLanes, lane)
					break
				}
			}
		}
		if len(badLanes) == 0 {
			continue
		}

		s1, s2 := seq1[library.ID], seq2[library.ID]
		var fields []string
		switch {
		case s1 == "" && s2 == "":
			fields = []string{FieldBarcode, FieldBarcode2}
		default:
			if s1 != "" {
				fields = append(fields, FieldBarcode)
			}
			if s2 != "" {
				fields = append(fields, FieldBarcode2)
			}
		}

		display1, display2 := s1, s2
		if display1 == "" {
			display1 = "-"
		}
		if display2 == "" {
			display2 = "-"
		}
		message := fmt.Sprintf("Barcode combination %s/%s is not unique for %s %s",
			display1, display2, lanePlural(badLanes), FormatLaneRange(badLanes))
		for _, field := range fields {
			report.Add(library.ID, field, message)
		}
	}
}
