package workflow

import (
	"context"

	"github.com/spigell/cv-advisor/internal/analysis"
	"golang.org/x/sync/errgroup"
)

const defaultScreenLimit = 4

// ScreenJob is one posting to screen.
type ScreenJob struct {
	Title string
	Text  string
}

// ScreenResult is the analysis of one screened job. Err holds a per-job failure.
type ScreenResult struct {
	Job    ScreenJob
	Result *analysis.Result
	Err    error
}

// Screen analyzes every job against the CV with at most limit analyses in
// flight. Results keep the order of jobs. Only cancellation fails the call.
func Screen(ctx context.Context, analyzer Analyzer, cv string, jobs []ScreenJob, limit int) ([]ScreenResult, error) {
	if limit <= 0 {
		limit = defaultScreenLimit
	}

	results := make([]ScreenResult, len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			result, err := analyzer.Run(gCtx, cv, job.Text)
			results[i] = ScreenResult{Job: job, Result: result, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
