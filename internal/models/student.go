package models

// Student is keyed by the numeric record id exported in the response sheet.
type Student struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Class      string  `db:"class" json:"class"`
	Section    *string `db:"section" json:"section,omitempty"`
	ExternalID *string `db:"external_id" json:"external_id,omitempty"`
}
