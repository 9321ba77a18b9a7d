package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/store"
)

const DefaultBatchSize = 100

// ErrNoValidRows means every input row was rejected.
var ErrNoValidRows = errors.New("no valid rows to ingest")

type Options struct {
	BatchSize      int
	DryRun         bool
	UpdateExisting bool
}

// Summary reports an import. Inserted and Skipped apply to plain inserts,
// Upserted to --update-existing runs.
type Summary struct {
	Total          int        `json:"total"`
	Valid          int        `json:"valid"`
	Rejected       []Rejected `json:"rejected,omitempty"`
	Inserted       int        `json:"inserted"`
	Skipped        int        `json:"skipped"`
	Upserted       int        `json:"upserted"`
	Failed         int        `json:"failed"`
	Errors         []string   `json:"errors,omitempty"`
	DryRun         bool       `json:"dry_run"`
	UpdateExisting bool       `json:"update_existing"`
}

type Importer struct {
	verses *store.VerseStore
	logger *slog.Logger
}

func NewImporter(db *database.DB, logger *slog.Logger) *Importer {
	return &Importer{verses: store.NewVerseStore(db), logger: logger.With("component", "ingest")}
}

// Import validates rows and writes the valid ones in batches. A failed batch
// is counted and the import moves on to the next.
func (im *Importer) Import(ctx context.Context, rows []Row, opts Options) (Summary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	verses, rejected := Validate(rows)
	summary := Summary{
		Total:          len(rows),
		Valid:          len(verses),
		Rejected:       rejected,
		DryRun:         opts.DryRun,
		UpdateExisting: opts.UpdateExisting,
	}
	if len(verses) == 0 {
		return summary, ErrNoValidRows
	}
	if opts.DryRun {
		return summary, nil
	}

	batches := (len(verses) + opts.BatchSize - 1) / opts.BatchSize
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		start := i * opts.BatchSize
		end := min(start+opts.BatchSize, len(verses))
		batch := verses[start:end]

		n, err := im.verses.UpsertBatch(ctx, batch, opts.UpdateExisting)
		if err != nil {
			summary.Failed += len(batch)
			summary.Errors = append(summary.Errors, err.Error())
			im.logger.Error("verse batch failed", "batch", i+1, "of", batches, "error", err)
			continue
		}
		if opts.UpdateExisting {
			summary.Upserted += int(n)
		} else {
			summary.Inserted += int(n)
			summary.Skipped += len(batch) - int(n)
		}
		im.logger.Info("verse batch written", "batch", i+1, "of", batches, "rows", n)
	}
	return summary, nil
}
