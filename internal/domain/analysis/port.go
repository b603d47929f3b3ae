package analysis

import "context"

// Classifier port: sends one rendered batch prompt to the remote analysis
// service and returns whatever records could be recovered from its answer.
// An empty slice is a valid outcome; exhausted retries are reported through
// the error for logging but must not abort sibling batches.
type Classifier interface {
	Submit(ctx context.Context, systemPrompt, userPrompt string) ([]RawRecord, error)
}

// RunRepository port (persistence untuk run history)
type RunRepository interface {
	Save(ctx context.Context, run *AuditRun) error
	Latest(ctx context.Context, limit int) ([]*AuditRun, error)
}

// ArtifactStore port for uploading produced workbooks.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
