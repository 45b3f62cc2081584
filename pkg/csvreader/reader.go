// Package csvreader decodes uploaded CSV exports into header-keyed rows or positional records.
//
// Uploads are produced by spreadsheet tooling that writes a single-byte Latin charset, so the
// raw bytes are transcoded from ISO-8859-1 before parsing. Malformed records are skipped and
// counted instead of failing the whole file.
package csvreader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyInput is returned when the payload holds no records at all.
	ErrEmptyInput = errors.New("csv input is empty")
	// ErrMissingHeader is returned when the first record carries no column names.
	ErrMissingHeader = errors.New("csv input has no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row maps header names to the raw field values of one data record.
type Row map[string]string

// Get returns the value stored under key, or "" when the column is absent.
func (r Row) Get(key string) string {
	return r[key]
}

// Table is a decoded header-driven CSV file.
type Table struct {
	Header []string
	Rows   []Row
	// Skipped counts records the CSV tokenizer rejected.
	Skipped int
}

// Records is a decoded positional CSV file. Index 0 holds the header record.
type Records struct {
	Lines   [][]string
	Skipped int
}

// Decode converts ISO-8859-1 encoded bytes to a UTF-8 string.
func Decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

// ReadRecords parses raw into positional records.
func ReadRecords(raw []byte) (*Records, error) {
	text, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &Records{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		result.Lines = append(result.Lines, record)
	}

	if len(result.Lines) == 0 {
		return nil, ErrEmptyInput
	}
	return result, nil
}

// ReadTable parses raw using its first record as the header.
func ReadTable(raw []byte) (*Table, error) {
	records, err := ReadRecords(raw)
	if err != nil {
		return nil, err
	}

	header := make([]string, len(records.Lines[0]))
	named := false
	for i, name := range records.Lines[0] {
		header[i] = strings.TrimSpace(name)
		if header[i] != "" {
			named = true
		}
	}
	if !named {
		return nil, ErrMissingHeader
	}

	table := &Table{Header: header, Skipped: records.Skipped, Rows: make([]Row, 0, len(records.Lines)-1)}
	for _, record := range records.Lines[1:] {
		row := make(Row, len(header))
		for i := 0; i < len(header) && i < len(record); i++ {
			row[header[i]] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
