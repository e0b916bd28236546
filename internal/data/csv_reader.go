package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDataAccess marks a dataset that is missing, unreadable or malformed.
var ErrDataAccess = errors.New("data access error")

type Table struct {
	Columns []string
	Rows    [][]decimal.Decimal
	Source  string
	Skipped int
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) Column(name string) ([]decimal.Decimal, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found in %s", ErrDataAccess, name, t.Source)
	}

	values := make([]decimal.Decimal, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

func (t *Table) Len() int {
	return len(t.Rows)
}

type CSVReader struct {
	filename string
}

func NewCSVReader(filename string) *CSVReader {
	return &CSVReader{filename: filename}
}

// LoadTable re-reads the file on every call.
func (cr *CSVReader) LoadTable() (*Table, error) {
	file, err := os.Open(cr.filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	defer file.Close()

	return ReadTable(file, cr.filename)
}

func ReadTable(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDataAccess, source, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%w: insufficient data in %s", ErrDataAccess, source)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := &Table{
		Columns: headers,
		Rows:    make([][]decimal.Decimal, 0, len(records)-1),
		Source:  source,
	}

	for i, record := range records[1:] {
		line := i + 2

		hasEmpty := false
		for _, val := range record {
			if strings.TrimSpace(val) == "" {
				hasEmpty = true
				break
			}
		}
		if hasEmpty {
			table.Skipped++
			continue
		}

		row := make([]decimal.Decimal, len(record))
		for j, val := range record {
			dec, err := decimal.NewFromString(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%w: non-numeric value %q at line %d, column %s",
					ErrDataAccess, val, line, headers[j])
			}
			row[j] = dec
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: no complete rows in %s", ErrDataAccess, source)
	}

	return table, nil
}
