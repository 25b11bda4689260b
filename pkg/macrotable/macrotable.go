// Package macrotable loads ingredient macro tables from CSV.
package macrotable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// Header is the expected first row of a macro table file.
var Header = []string{"name", "calories_per_gram", "protein_per_gram"}

// Load reads a macro table from the CSV file at path.
func Load(path string) (nutrition.MacroTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening macro table: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a macro table from CSV. Names are matched case-insensitively,
// so two rows that differ only in case are rejected as duplicates.
func Parse(r io.Reader) (nutrition.MacroTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("macro table is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) != len(Header) {
		return nil, fmt.Errorf("invalid header length: expected %d columns, got %d", len(Header), len(header))
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) != Header[i] {
			return nil, fmt.Errorf("invalid header: expected %s at position %d, got %s", Header[i], i, h)
		}
	}

	table := make(nutrition.MacroTable)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("line %d: missing ingredient name", line)
		}
		calories, err := parseRate(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing calories_per_gram for %s: %w", line, name, err)
		}
		protein, err := parseRate(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing protein_per_gram for %s: %w", line, name, err)
		}
		if _, exists := table.Lookup(name); exists {
			return nil, fmt.Errorf("line %d: duplicate ingredient %s", line, name)
		}
		table.Set(name, nutrition.Macros{CaloriesPerGram: calories, ProteinPerGram: protein})
	}
	return table, nil
}

func parseRate(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative rate %v", v)
	}
	return v, nil
}
