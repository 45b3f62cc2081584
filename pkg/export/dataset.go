package export

import "fmt"

// Column describes one exported field.
type Column struct {
	Title   string
	Numeric bool
	// Width is a relative weight used by the PDF layout. Zero counts as 1.
	Width float64
}

// Dataset is tabular export content. Every row holds one cell per column.
type Dataset struct {
	Columns []Column
	Rows    [][]string
}

// Titles returns the column titles in order.
func (d Dataset) Titles() []string {
	titles := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		titles[i] = col.Title
	}
	return titles
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(d.Columns))
		}
	}
	return nil
}
