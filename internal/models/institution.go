package models

// Institution is the root of the organisational hierarchy, unique by name.
type Institution struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Batch groups students of one institution, unique per (name, institution).
type Batch struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	InstitutionID int64  `db:"institution_id" json:"institution_id"`
}
