package analysis

import (
	"time"

	"github.com/auditops/envsegd/internal/domain/inventory"
)

// Verdict enum
type Verdict string

const (
	VerdictOK        Verdict = "OK"
	VerdictDeviation Verdict = "Deviation"
	// VerdictUnknown is assigned to systems the analysis service never
	// returned a record for. These are surfaced explicitly, not dropped.
	VerdictUnknown Verdict = "Unknown"
)

// ReasonAllPresent is the fixed reason the prompt contract requires for a
// compliant system.
const ReasonAllPresent = "DEV, TEST, PROD environments are present"

// ClassificationResult is one verdict per entity key.
type ClassificationResult struct {
	SystemName string  `json:"System_Name"`
	Verdict    Verdict `json:"-"`
	Reason     string  `json:"Reason"`
}

// RawRecord is one mapping recovered from model output text before it is
// reconciled against the input population.
type RawRecord map[string]any

// ReportMetadata is the provenance block written to the Metadata sheet.
type ReportMetadata struct {
	User             string
	Timestamp        time.Time
	GeneratedBy      string
	SourceFile       string
	TotalRecords     int
	ExceptionRecords int
	OKRecords        int
	UnknownRecords   int
	Environment      string
}

// Report is the final artifact of one analysis: the verbatim inventory
// table, the reconciled results, and the metadata block. Immutable once
// assembled.
type Report struct {
	Kind      inventory.Spec
	Inventory *inventory.Table
	Results   []ClassificationResult
	Metadata  ReportMetadata
}

// CountVerdicts tallies results into the metadata buckets.
func CountVerdicts(results []ClassificationResult) (ok, exception, unknown int) {
	for _, r := range results {
		switch r.Verdict {
		case VerdictOK:
			ok++
		case VerdictDeviation:
			exception++
		default:
			unknown++
		}
	}
	return ok, exception, unknown
}

// AuditRun is one recorded execution of a workflow, persisted for history.
type AuditRun struct {
	ID          string    `json:"id"`
	Process     string    `json:"process"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	SourceFile  string    `json:"source_file,omitempty"`
	Total       int       `json:"total"`
	OK          int       `json:"ok"`
	Deviation   int       `json:"deviation"`
	Unknown     int       `json:"unknown"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)
