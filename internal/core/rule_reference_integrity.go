package core

import (
	"context"
	"fmt"

	"flowcore/pkg/domain"
)

// NewReferenceIntegrityRule returns the rule blocking commits that leave
// dangling references: flow cells pointing at unknown machines and barcode
// slots referencing unknown barcode set entries. Records pointing at unknown
// flow cells are rejected earlier, inside the transaction itself.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, message string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "reference_integrity",
			Severity: domain.SeverityBlock,
			Message:  message,
			Entity:   entity,
			EntityID: id,
		})
	}

	for _, fc := range view.ListFlowCells() {
		if _, ok := view.FindSequencingMachine(fc.SequencingMachineID); !ok {
			block(domain.EntityFlowCell, fc.ID,
				fmt.Sprintf("flow cell %s references unknown sequencing machine %s", fc.VendorID, fc.SequencingMachineID))
		}
		for _, library := range view.ListLibraries(fc.ID) {
			for slot, barcode := range map[string]domain.Barcode{
				domain.FieldBarcode:  library.Barcode,
				domain.FieldBarcode2: library.Barcode2,
			} {
				if barcode.Kind != domain.BarcodeReference {
					continue
				}
				if _, ok := view.FindBarcodeEntry(barcode.EntryID); !ok {
					block(domain.EntityLibrary, library.ID,
						fmt.Sprintf("library %s %s references unknown barcode entry %s", library.Name, slot, barcode.EntryID))
				}
			}
		}
	}
	return res, nil
}
