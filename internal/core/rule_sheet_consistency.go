package core

import (
	"context"
	"fmt"
	"sort"

	"flowcore/pkg/domain"
)

// NewSheetConsistencyRule surfaces sample-sheet and index-histogram
// inconsistencies as warn-severity violations at commit time. The rule is
// purely diagnostic: it never blocks, matching the checker contract that bad
// data is reported, not rejected.
func NewSheetConsistencyRule() domain.Rule {
	return sheetConsistencyRule{}
}

type sheetConsistencyRule struct{}

func (sheetConsistencyRule) Name() string { return "sheet_consistency" }

func (sheetConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	lookup := view.FindBarcodeEntry

	for _, fc := range view.ListFlowCells() {
		libraries := view.ListLibraries(fc.ID)

		sheet := CheckSampleSheet(fc, libraries, lookup)
		for _, library := range libraries {
			fields, ok := sheet[library.ID]
			if !ok {
				continue
			}
			names := make([]string, 0, len(fields))
			for field := range fields {
				names = append(names, field)
			}
			sort.Strings(names)
			for _, field := range names {
				for _, message := range fields[field] {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     "sheet_consistency",
						Severity: domain.SeverityWarn,
						Message:  fmt.Sprintf("library %s: %s: %s", library.Name, field, message),
						Entity:   domain.EntityLibrary,
						EntityID: library.ID,
					})
				}
			}
		}

		index := CheckIndexHistograms(fc, libraries, view.ListIndexHistograms(fc.ID), lookup)
		keys := make([]domain.IndexKey, 0, len(index))
		for key := range index {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Lane != keys[j].Lane {
				return keys[i].Lane < keys[j].Lane
			}
			if keys[i].IndexRead != keys[j].IndexRead {
				return keys[i].IndexRead < keys[j].IndexRead
			}
			return keys[i].Sequence < keys[j].Sequence
		})
		for _, key := range keys {
			for _, message := range index[key] {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "sheet_consistency",
					Severity: domain.SeverityWarn,
					Message:  message,
					Entity:   domain.EntityIndexHistogram,
					EntityID: fc.ID,
				})
			}
		}
	}
	return res, nil
}
