package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/auditops/envsegd/internal/application"
	"github.com/auditops/envsegd/internal/domain/analysis"
	"github.com/auditops/envsegd/internal/domain/inventory"
	"github.com/auditops/envsegd/internal/infra/spreadsheet"
)

// Service implements the deviation-analysis use case for one entity kind:
// locate the newest population file, derive system summaries, drive the
// batcher, reconcile verdicts and persist the report workbook.
type Service struct {
	Batcher     *Batcher
	Artifacts   analysis.ArtifactStore // optional
	Clock       application.Clock
	InputDir    string
	OutputDir   string
	Environment string
	Log         *slog.Logger
}

// Outcome summarizes one completed analysis run.
type Outcome struct {
	SourceFile  string
	OutputFile  string
	ArtifactURL string
	Total       int
	OK          int
	Deviation   int
	Unknown     int
}

// Run executes the full analysis workflow for the kind.
func (s *Service) Run(ctx context.Context, kind inventory.Kind) (*Outcome, error) {
	spec, err := inventory.SpecFor(kind)
	if err != nil {
		return nil, err
	}
	log := s.Log.With("analyzer", spec.AnalyzerName)

	inputFile, err := spreadsheet.FindLatest(filepath.Join(s.InputDir, "*_"+spec.FileSuffix+".xlsx"))
	if err != nil {
		return nil, fmt.Errorf("find input file: %w", err)
	}
	log.Info("found input file", "file", inputFile)

	table, err := s.loadInventory(inputFile, spec)
	if err != nil {
		return nil, err
	}
	log.Info("loaded records", "count", len(table.Rows), "file", inputFile)

	summaries := inventory.Summarize(table, spec.KeyColumn, spec.EnvColumn)
	if len(summaries) == 0 {
		return nil, analysis.ErrNoData
	}

	results, err := s.classify(ctx, spec, summaries)
	if err != nil {
		return nil, err
	}

	outcome, err := s.save(ctx, spec, inputFile, table, results)
	if err != nil {
		return nil, err
	}
	log.Info("analysis completed", "results", len(results), "output", outcome.OutputFile)
	return outcome, nil
}

func (s *Service) loadInventory(path string, spec inventory.Spec) (*inventory.Table, error) {
	sheets, err := spreadsheet.SheetNames(path)
	if err != nil {
		return nil, err
	}
	found := false
	for _, name := range sheets {
		if name == spec.DataSheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("required sheet %q not found in %s", spec.DataSheet, filepath.Base(path))
	}

	table, err := spreadsheet.ReadSheet(path, spec.DataSheet)
	if err != nil {
		return nil, err
	}
	if missing := table.MissingColumns(spec.RequiredColumns); len(missing) > 0 {
		return nil, fmt.Errorf("required columns %s not found in %s sheet",
			strings.Join(missing, ", "), spec.DataSheet)
	}
	if table.Empty() {
		return nil, analysis.ErrNoData
	}
	return table, nil
}

// classify fans the summaries out and reconciles the recovered records back
// to the input population by System Name. Positional order in the response
// is never trusted; any system the service did not answer for gets an
// explicit Unknown verdict instead of being dropped.
func (s *Service) classify(ctx context.Context, spec inventory.Spec, summaries []inventory.SystemSummary) ([]analysis.ClassificationResult, error) {
	raw, err := s.Batcher.Classify(ctx, spec, summaries)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]analysis.ClassificationResult, len(raw))
	for _, rec := range raw {
		res := resultFromRecord(rec, spec)
		if res.SystemName == "" {
			s.Log.Warn("dropping result without system name", "record", rec)
			continue
		}
		byName[res.SystemName] = res
	}

	if len(byName) != len(summaries) {
		// count mismatch is a partial-failure signal, not silently ignored
		s.Log.Warn("result count does not match input population",
			"expected", len(summaries), "received", len(byName))
	}

	results := make([]analysis.ClassificationResult, 0, len(summaries))
	matched := 0
	for _, sum := range summaries {
		res, ok := byName[sum.SystemName]
		if !ok {
			results = append(results, analysis.ClassificationResult{
				SystemName: sum.SystemName,
				Verdict:    analysis.VerdictUnknown,
				Reason:     "No verdict returned by analysis service",
			})
			continue
		}
		matched++
		delete(byName, sum.SystemName)
		results = append(results, res)
	}
	for name := range byName {
		s.Log.Warn("dropping verdict for system not in input population", "system", name)
	}
	if matched == 0 {
		return nil, analysis.ErrNoResults
	}
	return results, nil
}

func resultFromRecord(rec analysis.RawRecord, spec inventory.Spec) analysis.ClassificationResult {
	str := func(key string) string {
		if v, ok := rec[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	verdictText := str(spec.VerdictField)
	if verdictText == "" {
		verdictText = str("Verdict")
	}
	verdict := analysis.VerdictUnknown
	switch strings.ToUpper(verdictText) {
	case "OK":
		verdict = analysis.VerdictOK
	case "DEVIATION":
		verdict = analysis.VerdictDeviation
	}
	return analysis.ClassificationResult{
		SystemName: str("System_Name"),
		Verdict:    verdict,
		Reason:     str("Reason"),
	}
}

// save assembles the three-sheet report workbook next to the input file
// and uploads it when an artifact store is configured.
func (s *Service) save(ctx context.Context, spec inventory.Spec, inputFile string, table *inventory.Table, results []analysis.ClassificationResult) (*Outcome, error) {
	ok, exception, unknown := analysis.CountVerdicts(results)
	meta := analysis.ReportMetadata{
		User:             currentUser(),
		Timestamp:        s.Clock.Now(),
		GeneratedBy:      spec.AnalyzerName,
		SourceFile:       filepath.Base(inputFile),
		TotalRecords:     len(results),
		ExceptionRecords: exception,
		OKRecords:        ok,
		UnknownRecords:   unknown,
		Environment:      s.Environment,
	}

	stem := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	outputFile := filepath.Join(s.OutputDir, stem+"_Deviation_Analysis.xlsx")

	err := spreadsheet.WriteWorkbook(outputFile, []spreadsheet.Sheet{
		{Name: spec.DataSheet, Table: table},
		{Name: spec.AnalysisSheet, Table: resultsTable(spec, results)},
		{Name: "Metadata", Table: metadataTable(meta)},
	})
	if err != nil {
		return nil, fmt.Errorf("save analysis results: %w", err)
	}
	s.Log.Info("analysis results saved", "file", outputFile)

	outcome := &Outcome{
		SourceFile: filepath.Base(inputFile),
		OutputFile: outputFile,
		Total:      len(results),
		OK:         ok,
		Deviation:  exception,
		Unknown:    unknown,
	}
	if s.Artifacts != nil {
		key := fmt.Sprintf("reports/%s/%s", spec.Kind, filepath.Base(outputFile))
		url, err := s.Artifacts.Upload(ctx, outputFile, key)
		if err != nil {
			// the local workbook is the artifact of record; upload failure
			// is logged, not fatal
			s.Log.Error("artifact upload failed", "file", outputFile, "error", err)
		} else {
			outcome.ArtifactURL = url
		}
	}
	return outcome, nil
}

func resultsTable(spec inventory.Spec, results []analysis.ClassificationResult) *inventory.Table {
	t := &inventory.Table{Columns: []string{"System_Name", spec.VerdictField, "Reason"}}
	for _, r := range results {
		t.Rows = append(t.Rows, inventory.Record{
			"System_Name":     r.SystemName,
			spec.VerdictField: string(r.Verdict),
			"Reason":          r.Reason,
		})
	}
	return t
}

func metadataTable(m analysis.ReportMetadata) *inventory.Table {
	pairs := [][2]string{
		{"user", m.User},
		{"report_timestamp", m.Timestamp.Format("2006-01-02 15:04:05")},
		{"generated_by", m.GeneratedBy},
		{"source_population_file", m.SourceFile},
		{"total_records_analyzed", strconv.Itoa(m.TotalRecords)},
		{"exception_records", strconv.Itoa(m.ExceptionRecords)},
		{"ok_records", strconv.Itoa(m.OKRecords)},
		{"unknown_records", strconv.Itoa(m.UnknownRecords)},
		{"environment", m.Environment},
	}
	t := &inventory.Table{Columns: []string{"Key", "Value"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, inventory.Record{"Key": p[0], "Value": p[1]})
	}
	return t
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
