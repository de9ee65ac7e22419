package core

import (
	"context"
	"fmt"

	"flowcore/pkg/domain"
)

// NewFlowCellIdentityRule returns the rule enforcing that no two flow cells
// share the same (vendor ID, run number, sequencing machine) identity.
func NewFlowCellIdentityRule() domain.Rule {
	return flowCellIdentityRule{}
}

type flowCellIdentityRule struct{}

func (flowCellIdentityRule) Name() string { return "flowcell_identity" }

func (flowCellIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	type identity struct {
		vendorID  string
		runNumber int
		machineID string
	}
	byIdentity := map[identity][]domain.FlowCell{}
	for _, fc := range view.ListFlowCells() {
		key := identity{vendorID: fc.VendorID, runNumber: fc.RunNumber, machineID: fc.SequencingMachineID}
		byIdentity[key] = append(byIdentity[key], fc)
	}

	res := domain.Result{}
	for key, cells := range byIdentity {
		if len(cells) < 2 {
			continue
		}
		for _, fc := range cells {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "flowcell_identity",
				Severity: domain.SeverityBlock,
				Message: fmt.Sprintf("flow cell %s duplicates run %d on machine %s",
					key.vendorID, key.runNumber, key.machineID),
				Entity:   domain.EntityFlowCell,
				EntityID: fc.ID,
			})
		}
	}
	return res, nil
}
