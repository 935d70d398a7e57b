package processor

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/vocabdeck/internal/batch"
)

// BatchResult is the outcome of one batch job
type BatchResult struct {
	Job    batch.Job
	Report *Report
	Err    error
}

// ProcessBatch reads a batch file and generates every listed session
func (p *Processor) ProcessBatch(ctx context.Context, filename string, limit int) ([]BatchResult, error) {
	jobs, err := batch.ReadBatchFile(filename)
	if err != nil {
		return nil, err
	}
	return p.GenerateBatch(ctx, jobs, limit)
}

// GenerateBatch runs up to limit jobs at a time. A failing job doesn't stop
// the others; only a cancelled context ends the batch early. Results keep
// the order of jobs.
func (p *Processor) GenerateBatch(ctx context.Context, jobs []batch.Job, limit int) ([]BatchResult, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]BatchResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = BatchResult{Job: job, Err: err}
				return err
			}

			report, err := p.runJob(gctx, job)
			results[i] = BatchResult{Job: job, Report: report, Err: err}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error processing '%s': %v\n", jobName(job), err)
			}
			return gctx.Err()
		})
	}

	err := g.Wait()
	p.printSummary(results)
	return results, err
}

func (p *Processor) runJob(ctx context.Context, job batch.Job) (*Report, error) {
	id := job.SessionID
	if job.NeedsImport() {
		s, err := p.Import(ctx, id, job.PDF, job.Audio)
		if err != nil {
			return nil, err
		}
		id = s.ID
	}
	return p.Run(ctx, id)
}

func (p *Processor) printSummary(results []BatchResult) {
	processed, mismatched, errCount, cards := 0, 0, 0, 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		processed++
		cards += r.Report.Cards
		if r.Report.Mismatch != nil {
			mismatched++
		}
	}

	fmt.Fprintf(p.out, "\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(p.out, "Total sessions: %d\n", len(results))
	fmt.Fprintf(p.out, "Processed: %d\n", processed)
	fmt.Fprintf(p.out, "Cards: %d\n", cards)
	if mismatched > 0 {
		fmt.Fprintf(p.out, "Count mismatches: %d\n", mismatched)
	}
	if errCount > 0 {
		fmt.Fprintf(p.out, "Errors: %d\n", errCount)
	}
	fmt.Fprintf(p.out, "================================\n")
}

func jobName(job batch.Job) string {
	if job.SessionID != "" {
		return job.SessionID
	}
	return job.PDF
}
