// Package spreadsheet wraps xlsx workbook I/O for inventory tables and
// report sheets.
package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/auditops/envsegd/internal/domain/inventory"
)

// Sheet pairs a sheet name with its table content.
type Sheet struct {
	Name  string
	Table *inventory.Table
}

// SheetNames lists the sheets of a workbook.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadSheet loads one sheet into a table. The first row is the header;
// missing trailing cells are treated as empty.
func ReadSheet(path, sheet string) (*inventory.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &inventory.Table{}, nil
	}

	header := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		header = append(header, strings.TrimSpace(h))
	}

	table := &inventory.Table{Columns: header}
	for _, raw := range rows[1:] {
		rec := make(inventory.Record, len(header))
		empty := true
		for i, col := range header {
			var v string
			if i < len(raw) {
				v = strings.TrimSpace(raw[i])
			}
			rec[col] = v
			if v != "" {
				empty = false
			}
		}
		if !empty {
			table.Rows = append(table.Rows, rec)
		}
	}
	return table, nil
}

// WriteWorkbook writes the given sheets to a new workbook, in order. The
// first sheet replaces the default one.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return fmt.Errorf("add sheet %q: %w", sheet.Name, err)
			}
		}
		if err := writeTable(f, sheet.Name, sheet.Table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t *inventory.Table) error {
	if t == nil {
		return nil
	}
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	for r, rec := range t.Rows {
		row := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = rec[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", r+2, sheet, err)
		}
	}
	return nil
}

// FindLatest returns the most recently modified file matching the glob
// pattern, or an error when nothing matches.
func FindLatest(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files matching %s", pattern)
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
	return matches[len(matches)-1], nil
}
