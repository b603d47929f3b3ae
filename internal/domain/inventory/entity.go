package inventory

import "strings"

// Table is one loaded inventory sheet: ordered columns plus rows keyed by
// column name. Rows are immutable once loaded.
type Table struct {
	Columns []string
	Rows    []Record
}

// Record is one row of source data.
type Record map[string]string

// Get reads a cell by column name, trimmed.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// MissingColumns reports which of the required columns are absent.
func (t *Table) MissingColumns(required []string) []string {
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = true
	}
	var missing []string
	for _, c := range required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// SystemSummary is one entry per unique entity key: the distinct environment
// types observed plus explicit presence flags for the three required stages.
type SystemSummary struct {
	SystemName       string   `json:"System Name"`
	EnvironmentTypes []string `json:"Environment Types"`
	HasDev           bool     `json:"Has DEV"`
	HasTest          bool     `json:"Has TEST"`
	HasProd          bool     `json:"Has PROD"`
}

// Summarize groups rows by the key column and derives one SystemSummary per
// unique system, preserving first-seen order. Rows with an empty key are
// skipped.
func Summarize(t *Table, keyColumn, envColumn string) []SystemSummary {
	if t == nil {
		return nil
	}
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)
	var out []SystemSummary

	for _, row := range t.Rows {
		name := row.Get(keyColumn)
		if name == "" {
			continue
		}
		env := row.Get(envColumn)

		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			seen[name] = make(map[string]bool)
			out = append(out, SystemSummary{SystemName: name})
		}
		if env == "" || seen[name][env] {
			continue
		}
		seen[name][env] = true
		out[i].EnvironmentTypes = append(out[i].EnvironmentTypes, env)
		switch strings.ToUpper(env) {
		case "DEV":
			out[i].HasDev = true
		case "TEST":
			out[i].HasTest = true
		case "PROD":
			out[i].HasProd = true
		}
	}
	return out
}
