package domain

// Field names under which sample-sheet errors are reported, matching the
// form fields of the data-entry surface consuming the reports.
const (
	FieldName     = "name"
	FieldLane     = "lane"
	FieldBarcode  = "barcode"
	FieldBarcode2 = "barcode2"
)

// FieldErrors maps a field name to the ordered error messages raised for it.
type FieldErrors map[string][]string

// SampleSheetReport maps a library ID to its per-field error messages.
// An empty report means the sheet is consistent.
type SampleSheetReport map[string]FieldErrors

// Add appends a message for a library field, allocating nested maps as needed.
func (r SampleSheetReport) Add(libraryID, field, message string) {
	fields, ok := r[libraryID]
	if !ok {
		fields = FieldErrors{}
		r[libraryID] = fields
	}
	fields[field] = append(fields[field], message)
}

// IndexKey addresses one observed sequence in one histogram.
type IndexKey struct {
	Lane      int    `json:"lane"`
	IndexRead int    `json:"index_read"`
	Sequence  string `json:"sequence"`
}

// IndexReport maps observed-but-unexpected sequences to their error messages.
type IndexReport map[IndexKey][]string

// Add appends a message for an index key.
func (r IndexReport) Add(key IndexKey, message string) {
	r[key] = append(r[key], message)
}
