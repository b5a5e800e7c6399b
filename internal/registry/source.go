package registry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	NameColumn = "법령명"
	IDColumn   = "법령MST"
)

const utf8BOM = "\ufeff"

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// parseRows turns the raw table into name -> MST. A leading "총 N건" summary
// line before the header is skipped; later duplicates overwrite earlier rows.
func parseRows(rows [][]string) map[string]string {
	table := make(map[string]string)
	if len(rows) == 0 {
		return table
	}

	rows[0] = stripBOM(rows[0])
	header := rows[0]
	body := rows[1:]
	if !containsCell(header, IDColumn) && isSummaryLine(header) {
		if len(body) == 0 {
			return table
		}
		header = body[0]
		body = body[1:]
	}

	idxID := indexOf(header, IDColumn)
	idxName := indexOf(header, NameColumn)
	if idxID < 0 || idxName < 0 {
		return table
	}

	for _, row := range body {
		if len(row) <= max(idxID, idxName) {
			continue
		}
		mst := strings.TrimSpace(row[idxID])
		name := strings.TrimSpace(row[idxName])
		if mst == "" || name == "" {
			continue
		}
		table[name] = mst
	}
	return table
}

func isSummaryLine(row []string) bool {
	nonEmpty := 0
	summary := false
	for _, cell := range row {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		nonEmpty++
		if strings.Contains(cell, "총") {
			summary = true
		}
	}
	return nonEmpty == 1 && summary
}

func stripBOM(row []string) []string {
	if len(row) == 0 {
		return row
	}
	out := append([]string(nil), row...)
	out[0] = strings.TrimPrefix(out[0], utf8BOM)
	return out
}

func containsCell(row []string, value string) bool {
	return indexOf(row, value) >= 0
}

func indexOf(row []string, value string) int {
	for i, cell := range row {
		if strings.TrimSpace(cell) == value {
			return i
		}
	}
	return -1
}
