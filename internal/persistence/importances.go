package persistence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

var importanceHeader = []string{"feature name", "weight"}

type Importance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

type Direction int

const (
	Most Direction = iota
	Least
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "most", "":
		return Most, nil
	case "least":
		return Least, nil
	default:
		return 0, fmt.Errorf("unknown importance direction: %q", s)
	}
}

func (d Direction) String() string {
	if d == Least {
		return "least"
	}
	return "most"
}

// SaveImportances writes rows in the given order. Weights are rendered as
// plain decimal strings, independent of locale.
func SaveImportances(rows []Importance, filename string) error {
	return writeFileAtomic(filename, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(importanceHeader); err != nil {
			return err
		}
		for _, row := range rows {
			weight := decimal.NewFromFloat(row.Weight).String()
			if err := writer.Write([]string{row.Feature, weight}); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

func ReadImportances(filename string) ([]Importance, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: importances %s", ErrModelNotFound, filename)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(importanceHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptArtifact, filename, err)
	}
	if len(records) == 0 || records[0][0] != importanceHeader[0] || records[0][1] != importanceHeader[1] {
		return nil, fmt.Errorf("%w: %s has no %q header", ErrCorruptArtifact, filename, strings.Join(importanceHeader, ","))
	}

	rows := make([]Importance, 0, len(records)-1)
	for i, record := range records[1:] {
		weight, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid weight %q at line %d", ErrCorruptArtifact, record[1], i+2)
		}
		f, _ := weight.Float64()
		rows = append(rows, Importance{Feature: record[0], Weight: f})
	}
	return rows, nil
}

// LoadImportances returns the first topN rows for Most. For Least it returns
// the last topN rows reversed, so the weight nearest zero comes first.
func LoadImportances(filename string, topN int, direction Direction) ([]Importance, error) {
	if topN < 1 {
		return nil, fmt.Errorf("top n must be positive, got %d", topN)
	}

	rows, err := ReadImportances(filename)
	if err != nil {
		return nil, err
	}
	if topN > len(rows) {
		topN = len(rows)
	}

	switch direction {
	case Most:
		return rows[:topN], nil
	case Least:
		tail := rows[len(rows)-topN:]
		result := make([]Importance, len(tail))
		for i, row := range tail {
			result[len(tail)-1-i] = row
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unknown importance direction: %d", direction)
	}
}
