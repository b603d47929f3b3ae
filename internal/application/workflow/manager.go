// Package workflow chains the extraction and analysis stages per entity
// kind and records each execution in the run history.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/auditops/envsegd/internal/application"
	analysisapp "github.com/auditops/envsegd/internal/application/analysis"
	"github.com/auditops/envsegd/internal/application/extract"
	"github.com/auditops/envsegd/internal/domain/analysis"
	"github.com/auditops/envsegd/internal/domain/inventory"
)

// Manager orchestrates the per-kind workflows. Runs and Analysis history
// persistence is optional; a nil repository skips bookkeeping.
type Manager struct {
	Extract  *extract.Service
	Analysis *analysisapp.Service
	Runs     analysis.RunRepository // optional
	Clock    application.Clock
	Log      *slog.Logger
}

// RunWorkflow executes extraction then analysis for one kind. The audit
// run is recorded whether the workflow succeeded or not.
func (m *Manager) RunWorkflow(ctx context.Context, kind inventory.Kind) error {
	spec, err := inventory.SpecFor(kind)
	if err != nil {
		return err
	}
	log := m.Log.With("workflow", string(kind))
	log.Info("starting workflow")

	run := &analysis.AuditRun{
		ID:        uuid.New().String(),
		Process:   string(kind),
		StartedAt: m.Clock.Now(),
	}

	exRes, err := m.Extract.Run(ctx, kind)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return m.finish(ctx, run, fmt.Errorf("%s extraction failed: %w", spec.ExtractorName, err))
	}
	log.Info("extraction completed", "output", exRes.OutputFile, "records", exRes.RecordCount)

	outcome, err := m.Analysis.Run(ctx, kind)
	if err != nil {
		log.Error("analysis failed", "error", err)
		return m.finish(ctx, run, fmt.Errorf("%s failed: %w", spec.AnalyzerName, err))
	}

	run.SourceFile = outcome.SourceFile
	run.Total = outcome.Total
	run.OK = outcome.OK
	run.Deviation = outcome.Deviation
	run.Unknown = outcome.Unknown
	run.ArtifactURL = outcome.ArtifactURL
	log.Info("workflow completed", "output", outcome.OutputFile,
		"total", outcome.Total, "ok", outcome.OK, "deviation", outcome.Deviation, "unknown", outcome.Unknown)
	return m.finish(ctx, run, nil)
}

// RunSelected runs every selected workflow; a failing workflow never halts
// the others. The joined error reflects whether any workflow failed.
func (m *Manager) RunSelected(ctx context.Context, kinds []inventory.Kind) error {
	var errs []error
	for _, kind := range kinds {
		if err := m.RunWorkflow(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) finish(ctx context.Context, run *analysis.AuditRun, cause error) error {
	run.FinishedAt = m.Clock.Now()
	if cause != nil {
		run.Status = analysis.RunStatusFailed
		run.Error = cause.Error()
	} else {
		run.Status = analysis.RunStatusSuccess
	}
	if m.Runs != nil {
		if err := m.Runs.Save(ctx, run); err != nil {
			m.Log.Error("saving run history failed", "run_id", run.ID, "error", err)
		}
	}
	return cause
}
