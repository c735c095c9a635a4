package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readPoints parses one observation per CSV row. A first row that does not
// parse as numbers is treated as a header and skipped.
func readPoints(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var x [][]float64
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row, err := parseRow(rec)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		x = append(x, row)
	}
	if len(x) == 0 {
		return nil, errors.New("csv has no data rows")
	}
	return x, nil
}

func parseRow(rec []string) ([]float64, error) {
	row := make([]float64, len(rec))
	for j, field := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", j+1, err)
		}
		row[j] = v
	}
	return row, nil
}
