package core

import (
	"context"
	"testing"

	"flowcore/pkg/domain"
)

func TestFlowCellIdentityRuleAllowsDistinctRuns(t *testing.T) {
	view := &stubView{
		machines: []SequencingMachine{testMachine("m1", "NS501")},
		flowcells: []FlowCell{
			testFlowCell("fc1", "FC001", "m1", 1),
			testFlowCell("fc2", "FC001", "m1", 2),
			testFlowCell("fc3", "FC002", "m1", 1),
		},
	}
	res, err := NewFlowCellIdentityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}
}

func TestFlowCellIdentityRuleBlocksDuplicates(t *testing.T) {
	view := &stubView{
		machines: []SequencingMachine{testMachine("m1", "NS501")},
		flowcells: []FlowCell{
			testFlowCell("fc1", "FC001", "m1", 7),
			testFlowCell("fc2", "FC001", "m1", 7),
		},
	}
	res, err := NewFlowCellIdentityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected one violation per duplicate, got %v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatal("identity violations must block")
	}
	want := "flow cell FC001 duplicates run 7 on machine m1"
	for _, v := range res.Violations {
		if v.Rule != "flowcell_identity" || v.Severity != domain.SeverityBlock {
			t.Fatalf("unexpected violation %+v", v)
		}
		if v.Message != want {
			t.Fatalf("got message %q, want %q", v.Message, want)
		}
	}
}

func TestFlowCellIdentityRuleSameVendorDifferentMachine(t *testing.T) {
	view := &stubView{
		machines: []SequencingMachine{testMachine("m1", "NS501"), testMachine("m2", "NS502")},
		flowcells: []FlowCell{
			testFlowCell("fc1", "FC001", "m1", 7),
			testFlowCell("fc2", "FC001", "m2", 7),
		},
	}
	res, err := NewFlowCellIdentityRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("different machines must not collide, got %v", res.Violations)
	}
}
