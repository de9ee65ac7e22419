package core

import (
	"fmt"
	"regexp"
)

var libraryNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// checkLibraryNames flags library names containing characters that would
// break downstream sample sheets.
func checkLibraryNames(libraries []Library, report SampleSheetReport) {
	for _, library := range libraries {
		if !libraryNamePattern.MatchString(library.Name) {
			report.Add(library.ID, FieldName,
				"Library names may only contain alphanumeric characters, hyphens, and underscores")
		}
	}
}

// checkLaneBounds flags lane numbers outside [1, NumLanes]. Only the
// offending lanes are listed; valid lanes on the same library stay silent.
func checkLaneBounds(flowCell FlowCell, libraries []Library, report SampleSheetReport) {
	for _, library := range libraries {
		var bad []int
		for _, lane := range library.LaneNumbers {
			if lane < 1 || lane > flowCell.NumLanes {
				bad = append(bad, lane)
			}
		}
		if len(bad) == 0 {
			continue
		}
		report.Add(library.ID, FieldLane,
			fmt.Sprintf("Flow cell does not have %s #%s", lanePlural(bad), FormatLaneRange(bad)))
	}
}

// checkNameCollisions flags libraries sharing a name within a lane. Each
// affected library gets one combined message covering every offending lane.
func checkNameCollisions(libraries []Library, report SampleSheetReport) {
	type laneName struct {
		lane int
		name string
	}
	byName := map[laneName][]string{}
	for _, library := range libraries {
		for _, lane := range distinctLanes(library.LaneNumbers) {
			key := laneName{lane: lane, name: library.Name}
			byName[key] = append(byName[key], library.ID)
		}
	}

	badLanes := map[string][]int{}
	for key, ids := range byName {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			badLanes[id] = append(badLanes[id], key.lane)
		}
	}

	// Iterate libraries rather than the map so output order is stable.
	for _, library := range libraries {
		lanes, ok := badLanes[library.ID]
		if !ok {
			continue
		}
		report.Add(library.ID, FieldName,
			fmt.Sprintf("Library name %s is not unique for %s %s",
				library.Name, lanePlural(lanes), FormatLaneRange(lanes)))
	}
}
