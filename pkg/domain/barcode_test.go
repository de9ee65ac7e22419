package domain

import "testing"

func TestBarcodeConstructors(t *testing.T) {
	ref := BarcodeRef("e1")
	if ref.Kind != BarcodeReference || ref.EntryID != "e1" || !ref.IsSet() {
		t.Fatalf("unexpected reference %+v", ref)
	}
	lit := BarcodeSeq("ACGT")
	if lit.Kind != BarcodeLiteral || lit.Sequence != "ACGT" || !lit.IsSet() {
		t.Fatalf("unexpected literal %+v", lit)
	}
	if (Barcode{}).IsSet() {
		t.Fatal("zero value must be unset")
	}
}

func TestBarcodeResolve(t *testing.T) {
	lookup := func(id string) (BarcodeSetEntry, bool) {
		if id == "e1" {
			return BarcodeSetEntry{ID: "e1", Name: "A01", Sequence: "ACGT"}, true
		}
		return BarcodeSetEntry{}, false
	}

	if got := BarcodeRef("e1").Resolve(lookup); got != "ACGT" {
		t.Fatalf("reference resolved to %q", got)
	}
	if got := BarcodeRef("missing").Resolve(lookup); got != "" {
		t.Fatalf("dangling reference resolved to %q", got)
	}
	if got := BarcodeSeq("TTTT").Resolve(lookup); got != "TTTT" {
		t.Fatalf("literal resolved to %q", got)
	}
	if got := (Barcode{}).Resolve(lookup); got != "" {
		t.Fatalf("unset resolved to %q", got)
	}
	if got := BarcodeRef("e1").Resolve(nil); got != "" {
		t.Fatalf("nil lookup resolved to %q", got)
	}
}

func TestBarcodeReferenceWinsOverLiteral(t *testing.T) {
	lookup := func(string) (BarcodeSetEntry, bool) {
		return BarcodeSetEntry{Sequence: "GGGG"}, true
	}
	// A reference carrying a stale literal sequence still resolves through
	// the lookup.
	b := Barcode{Kind: BarcodeReference, EntryID: "e1", Sequence: "ACGT"}
	if got := b.Resolve(lookup); got != "GGGG" {
		t.Fatalf("resolved to %q, want GGGG", got)
	}
}
