package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/cv-advisor/internal/document"
	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to job postings.
type Filter interface {
	Name() string
	Apply(ctx context.Context, deps Deps, jobs []document.Job) ([]document.Job, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied filters sequentially and returns the jobs left.
func Run(ctx context.Context, deps Deps, steps []Filter, jobs []document.Job) ([]document.Job, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		next, info, err := step.Apply(ctx, deps, jobs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		jobs = next
	}

	return jobs, nil
}

func keep(jobs []document.Job, drop func(document.Job) bool) ([]document.Job, []string) {
	kept := make([]document.Job, 0, len(jobs))
	var dropped []string
	for _, job := range jobs {
		if drop(job) {
			dropped = append(dropped, job.Title)
			continue
		}
		kept = append(kept, job)
	}
	return kept, dropped
}
