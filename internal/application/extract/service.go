// Package extract implements the population-extraction stage: filter the
// source inventory per the client-supplied parameter sheet and write a
// verified population workbook with provenance metadata.
package extract

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/auditops/envsegd/internal/application"
	"github.com/auditops/envsegd/internal/domain/inventory"
	"github.com/auditops/envsegd/internal/infra/spreadsheet"
)

const (
	parameterFile  = "extraction_parameters.xlsx"
	parameterSheet = "Sheet1"
)

// Service implements the extraction use case for every entity kind.
type Service struct {
	DataDir        string
	OutputDir      string
	SourceWorkbook string
	Clock          application.Clock
	Log            *slog.Logger
}

// Result of one extraction pass.
type Result struct {
	OutputFile  string
	ClientName  string
	SystemNames []string
	RecordCount int
}

// Run filters the inventory sheet of the kind by the parameter sheet and
// writes the verified population file.
func (s *Service) Run(ctx context.Context, kind inventory.Kind) (*Result, error) {
	spec, err := inventory.SpecFor(kind)
	if err != nil {
		return nil, err
	}
	log := s.Log.With("extractor", spec.ExtractorName)

	paramsPath := filepath.Join(s.DataDir, parameterFile)
	dataPath := filepath.Join(s.DataDir, s.SourceWorkbook)
	for _, p := range []string{paramsPath, dataPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("input file not found: %s", p)
		}
	}

	params, err := spreadsheet.ReadSheet(paramsPath, parameterSheet)
	if err != nil {
		return nil, fmt.Errorf("load extraction parameters: %w", err)
	}
	log.Info("loaded extraction parameters", "records", len(params.Rows))

	data, err := spreadsheet.ReadSheet(dataPath, spec.DataSheet)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", spec.DataSheet, err)
	}
	log.Info("loaded inventory data", "records", len(data.Rows))

	if err := validate(spec, params, data); err != nil {
		return nil, err
	}

	clientName := extractClientName(params)
	filtered, systemNames := filter(spec, params, data)
	if filtered.Empty() {
		return nil, fmt.Errorf("no matching records found or no valid system names provided")
	}

	outputFile := filepath.Join(s.OutputDir, clientName+"_"+spec.FileSuffix+".xlsx")
	meta := s.metadataTable(spec, filtered, systemNames)
	err = spreadsheet.WriteWorkbook(outputFile, []spreadsheet.Sheet{
		{Name: spec.DataSheet, Table: filtered},
		{Name: "Metadata", Table: meta},
	})
	if err != nil {
		return nil, fmt.Errorf("save population file: %w", err)
	}
	log.Info("population file saved", "file", outputFile, "records", len(filtered.Rows))

	return &Result{
		OutputFile:  outputFile,
		ClientName:  clientName,
		SystemNames: systemNames,
		RecordCount: len(filtered.Rows),
	}, nil
}

func validate(spec inventory.Spec, params, data *inventory.Table) error {
	if params.Empty() {
		return fmt.Errorf("extraction parameters sheet is empty")
	}
	if data.Empty() {
		return fmt.Errorf("%s sheet is empty", spec.DataSheet)
	}
	if missing := params.MissingColumns([]string{"System Name"}); len(missing) > 0 {
		return fmt.Errorf("missing required column 'System Name' in extraction parameters")
	}
	if missing := data.MissingColumns(spec.RequiredColumns); len(missing) > 0 {
		return fmt.Errorf("missing required columns in %s: %s", spec.DataSheet, strings.Join(missing, ", "))
	}
	return nil
}

// extractClientName takes the first client name in the parameter sheet and
// strips characters unsuitable for file names.
func extractClientName(params *inventory.Table) string {
	name := "Default"
	for _, row := range params.Rows {
		if v := row.Get("Client Name"); v != "" {
			name = v
			break
		}
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "Default"
	}
	return b.String()
}

// filter keeps rows whose key column matches the parameter sheet's system
// names; the literal "All" keeps everything.
func filter(spec inventory.Spec, params, data *inventory.Table) (*inventory.Table, []string) {
	for _, row := range params.Rows {
		raw := row.Get("System Name")
		if raw == "" {
			continue
		}
		if strings.EqualFold(raw, "all") {
			return data, []string{"All"}
		}
		var names []string
		wanted := make(map[string]bool)
		for _, n := range strings.Split(raw, ",") {
			n = strings.TrimSpace(n)
			if n != "" {
				names = append(names, n)
				wanted[n] = true
			}
		}
		out := &inventory.Table{Columns: data.Columns}
		for _, rec := range data.Rows {
			if wanted[rec.Get(spec.KeyColumn)] {
				out.Rows = append(out.Rows, rec)
			}
		}
		return out, names
	}
	return &inventory.Table{Columns: data.Columns}, nil
}

func (s *Service) metadataTable(spec inventory.Spec, filtered *inventory.Table, systemNames []string) *inventory.Table {
	pairs := [][2]string{
		{"Extraction timestamp", s.Clock.Now().Format("2006-01-02 15:04:05")},
		{"Extracted by user ID", currentUser()},
		{"Agentic/Non-agentic process", "Agentic"},
		{"Agent name", spec.ExtractorName},
		{"System name", strings.Join(systemNames, ", ")},
		{"Record count", strconv.Itoa(len(filtered.Rows))},
		{"Hash total", hashTotal(filtered)},
		{"Parameter file used", parameterFile},
	}
	t := &inventory.Table{Columns: []string{"Key", "Value"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, inventory.Record{"Key": p[0], "Value": p[1]})
	}
	return t
}

// hashTotal is an MD5 checksum over a deterministic rendering of the
// filtered table, recorded so downstream consumers can detect tampering.
func hashTotal(t *inventory.Table) string {
	h := md5.New()
	fmt.Fprintln(h, strings.Join(t.Columns, "\t"))
	for _, rec := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = rec[c]
		}
		fmt.Fprintln(h, strings.Join(cells, "\t"))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
