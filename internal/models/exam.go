package models

import "time"

// Test is one exam sitting identified by its code.
type Test struct {
	Code          string     `db:"code" json:"code"`
	TestDate      *time.Time `db:"test_date" json:"test_date,omitempty"`
	TestType      string     `db:"test_type" json:"test_type"`
	InstitutionID int64      `db:"institution_id" json:"institution_id"`
	BatchID       int64      `db:"batch_id" json:"batch_id"`
}
