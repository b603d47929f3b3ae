package analysis

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/auditops/envsegd/internal/domain/analysis"
	"github.com/auditops/envsegd/internal/domain/inventory"
	"github.com/auditops/envsegd/internal/infra/ai/prompt"
)

const defaultBatchSize = 10

// Batcher partitions the summary set into fixed-size batches, renders one
// classification prompt per batch and drives all batches concurrently.
// A failing batch yields zero results without cancelling its siblings.
type Batcher struct {
	Classifier analysis.Classifier
	BatchSize  int
	Log        *slog.Logger
}

// NewBatcher wires a batcher with the default batch size.
func NewBatcher(classifier analysis.Classifier, log *slog.Logger) *Batcher {
	return &Batcher{Classifier: classifier, BatchSize: defaultBatchSize, Log: log}
}

// Classify fans out the full summary set and returns the concatenated
// per-batch results in batch order. A wholly empty return is an analysis
// failure, reported as ErrNoResults.
func (b *Batcher) Classify(ctx context.Context, spec inventory.Spec, summaries []inventory.SystemSummary) ([]analysis.RawRecord, error) {
	if len(summaries) == 0 {
		return nil, analysis.ErrNoData
	}
	size := b.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	type batch struct {
		offset int
		prompt string
	}
	var batches []batch
	for i := 0; i < len(summaries); i += size {
		end := i + size
		if end > len(summaries) {
			end = len(summaries)
		}
		p, err := prompt.BatchPrompt(spec, summaries[i:end])
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch{offset: i, prompt: p})
	}
	b.Log.Info("processing systems in batches",
		"systems", len(summaries), "batch_size", size, "batches", len(batches))

	system := prompt.SystemPrompt()
	results := make([][]analysis.RawRecord, len(batches))

	// full fan-out, independent fan-in: plain Group, no shared context
	// cancellation between batches
	var g errgroup.Group
	for i, bt := range batches {
		g.Go(func() error {
			records, err := b.Classifier.Submit(ctx, system, bt.prompt)
			if err != nil {
				b.Log.Error("batch failed", "batch", i+1, "offset", bt.offset, "error", err)
				return nil
			}
			b.Log.Info("batch returned", "batch", i+1, "records", len(records))
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var all []analysis.RawRecord
	for _, r := range results {
		all = append(all, r...)
	}
	b.Log.Info("total results after batching", "records", len(all))
	if len(all) == 0 {
		return nil, analysis.ErrNoResults
	}
	return all, nil
}
