package filtering

import (
	"context"
	"strings"

	"github.com/spigell/cv-advisor/internal/document"
	"go.uber.org/zap"
)

type titlesFilter struct {
	keywords []string
}

// NewExcludedTitles creates a filter that removes jobs whose title contains any keyword.
func NewExcludedTitles(keywords []string) Filter {
	normalized := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
			normalized = append(normalized, keyword)
		}
	}
	return &titlesFilter{keywords: normalized}
}

func (f *titlesFilter) Name() string { return "excluded_titles" }

func (f *titlesFilter) Apply(_ context.Context, deps Deps, jobs []document.Job) ([]document.Job, Step, error) {
	initial := len(jobs)
	if len(f.keywords) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	kept, dropped := keep(jobs, func(job document.Job) bool {
		title := strings.ToLower(job.Title)
		for _, keyword := range f.keywords {
			if strings.Contains(title, keyword) {
				return true
			}
		}
		return false
	})

	if len(dropped) > 0 {
		deps.Logger.Info("excluding jobs by title",
			zap.Strings("excluded_keywords", f.keywords),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}
