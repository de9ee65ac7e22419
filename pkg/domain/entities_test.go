package domain

import "testing"

func TestResultMerge(t *testing.T) {
	var res Result
	res.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn, Message: "w"}}})
	res.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock, Message: "b"}}})

	if len(res.Violations) != 2 {
		t.Fatalf("expected two violations, got %v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatal("expected blocking result")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "a" {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestResultWithoutBlocking(t *testing.T) {
	res := Result{Violations: []Violation{
		{Rule: "a", Severity: SeverityWarn},
		{Rule: "b", Severity: SeverityLog},
	}}
	if res.HasBlocking() {
		t.Fatal("no blocking violations present")
	}
	if len(res.Warnings()) != 2 {
		t.Fatalf("unexpected warnings %v", res.Warnings())
	}
}

func TestSampleSheetReportAdd(t *testing.T) {
	report := SampleSheetReport{}
	report.Add("L1", FieldName, "first")
	report.Add("L1", FieldName, "second")
	report.Add("L1", FieldLane, "lane issue")
	report.Add("L2", FieldBarcode, "barcode issue")

	if got := report["L1"][FieldName]; len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("message order lost: %v", got)
	}
	if len(report["L1"][FieldLane]) != 1 || len(report["L2"][FieldBarcode]) != 1 {
		t.Fatalf("unexpected report %v", report)
	}
}

func TestIndexReportAdd(t *testing.T) {
	report := IndexReport{}
	key := IndexKey{Lane: 1, IndexRead: 0, Sequence: "ACGT"}
	report.Add(key, "unexpected")
	report.Add(key, "again")
	if got := report[key]; len(got) != 2 {
		t.Fatalf("unexpected report %v", report)
	}
}

func TestRuleViolationErrorMessage(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "a", Severity: SeverityBlock}}}}
	if err.Error() != "transaction blocked by rules" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
