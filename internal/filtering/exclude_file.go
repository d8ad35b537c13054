package filtering

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spigell/cv-advisor/internal/document"
	"go.uber.org/zap"
)

// ExcludedJob is a job that was already analyzed.
type ExcludedJob struct {
	Title       string    `json:"title"`
	Fingerprint string    `json:"fingerprint"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

type ExcludedJobs struct {
	Items []ExcludedJob `json:"items"`
}

// Fingerprint identifies a posting by its content regardless of whitespace and case.
func Fingerprint(job document.Job) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(job.Content), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ReadExcludeFile returns an empty list when the file does not exist yet.
func ReadExcludeFile(path string) (*ExcludedJobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedJobs{}, nil
		}
		return nil, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %s: %w", path, err)
	}
	return &excluded, nil
}

// AppendToExcludeFile records jobs as analyzed.
func AppendToExcludeFile(path string, jobs ...document.Job) error {
	excluded, err := ReadExcludeFile(path)
	if err != nil {
		return err
	}

	seen := excluded.fingerprints()
	for _, job := range jobs {
		fingerprint := Fingerprint(job)
		if _, ok := seen[fingerprint]; ok {
			continue
		}
		seen[fingerprint] = struct{}{}
		excluded.Items = append(excluded.Items, ExcludedJob{
			Title:       job.Title,
			Fingerprint: fingerprint,
			AnalyzedAt:  time.Now().UTC(),
		})
	}

	data, err := json.MarshalIndent(excluded, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (e *ExcludedJobs) fingerprints() map[string]struct{} {
	out := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		out[item.Fingerprint] = struct{}{}
	}
	return out
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes jobs listed in the exclude file.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: strings.TrimSpace(path)}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, jobs []document.Job) ([]document.Job, Step, error) {
	initial := len(jobs)
	if f.path == "" {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := ReadExcludeFile(f.path)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	seen := excluded.fingerprints()
	kept, dropped := keep(jobs, func(job document.Job) bool {
		_, ok := seen[Fingerprint(job)]
		return ok
	})

	if len(dropped) > 0 {
		deps.Logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}
