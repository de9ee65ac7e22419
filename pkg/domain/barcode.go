package domain

// BarcodeKind tags the three forms a library barcode slot can take.
type BarcodeKind string

const (
	// BarcodeUnset is the zero value: no barcode assigned to the slot.
	BarcodeUnset BarcodeKind = ""
	// BarcodeReference points at a BarcodeSetEntry by ID.
	BarcodeReference BarcodeKind = "reference"
	// BarcodeLiteral carries a directly entered sequence.
	BarcodeLiteral BarcodeKind = "literal"
)

// Barcode is a tagged variant: a barcode slot is either unset, a reference to
// a shared BarcodeSetEntry, or a literal sequence. A reference always wins
// over a literal, so the effective sequence is well defined per slot.
type Barcode struct {
	Kind     BarcodeKind `json:"kind,omitempty"`
	EntryID  string      `json:"entry_id,omitempty"`
	Sequence string      `json:"sequence,omitempty"`
}

// BarcodeRef returns a barcode referencing a BarcodeSetEntry.
func BarcodeRef(entryID string) Barcode {
	return Barcode{Kind: BarcodeReference, EntryID: entryID}
}

// BarcodeSeq returns a barcode carrying a literal sequence.
func BarcodeSeq(sequence string) Barcode {
	return Barcode{Kind: BarcodeLiteral, Sequence: sequence}
}

// IsSet reports whether the slot holds a reference or a literal.
func (b Barcode) IsSet() bool {
	return b.Kind == BarcodeReference || b.Kind == BarcodeLiteral
}

// BarcodeResolver looks up a BarcodeSetEntry by ID.
type BarcodeResolver func(entryID string) (BarcodeSetEntry, bool)

// Resolve returns the effective sequence of the slot. References resolve
// through lookup; a dangling reference resolves to the empty sequence, which
// the checkers treat the same as unset.
func (b Barcode) Resolve(lookup BarcodeResolver) string {
	switch b.Kind {
	case BarcodeReference:
		if lookup == nil {
			return ""
		}
		entry, ok := lookup(b.EntryID)
		if !ok {
			return ""
		}
		return entry.Sequence
	case BarcodeLiteral:
		return b.Sequence
	default:
		return ""
	}
}
