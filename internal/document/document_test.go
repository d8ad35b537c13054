package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const posting = `Senior Go Developer
Acme Corp, Berlin

We are looking for a backend developer with Go, PostgreSQL and Kubernetes experience.
Remote friendly within the EU.`

func TestSplitJobs(t *testing.T) {
	content := "---JOB 1---\n" + posting + "\n--- job 2 ---\ntoo short\n---JOB 3---\nData Analyst\n" + strings.Repeat("SQL and dashboards. ", 10)

	jobs, err := SplitJobs(content)
	if err != nil {
		t.Fatalf("SplitJobs returned error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %+v", len(jobs), jobs)
	}
	if jobs[0].Number != 1 || jobs[0].Title != "Senior Go Developer" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}
	if jobs[1].Number != 3 || jobs[1].Title != "Data Analyst" {
		t.Fatalf("unexpected second job: %+v", jobs[1])
	}
	if strings.Contains(jobs[0].Content, "---") {
		t.Fatalf("separator leaked into content: %q", jobs[0].Content)
	}
}

func TestSplitJobsWithoutSeparators(t *testing.T) {
	jobs, err := SplitJobs(posting)
	if err != nil {
		t.Fatalf("SplitJobs returned error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Number != 1 || jobs[0].Content != posting {
		t.Fatalf("expected whole content as one job, got %+v", jobs)
	}
}

func TestSplitJobsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty", content: "  \n", want: ErrEmpty},
		{name: "template", content: "[JOB TITLE]\nDescribe the role here", want: ErrTemplate},
		{name: "only short sections", content: "---JOB 1---\nshort\n---JOB 2---\nalso short", want: ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitJobs(tt.content)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "keyword line", content: "Acme Corp\nPlatform Engineer\nDetails", want: "Platform Engineer"},
		{name: "skips logo", content: "Logo of Data Engineer Inc\nStaff Data Engineer", want: "Staff Data Engineer"},
		{name: "first short line", content: "\nHead of Growth\nmore", want: "Head of Growth"},
		{name: "nothing usable", content: strings.Repeat("x", 150), want: "Job Description"},
		{name: "truncated", content: "Engineer " + strings.Repeat("a", 100), want: ("Engineer " + strings.Repeat("a", 100))[:80]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.content); got != tt.want {
				t.Fatalf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(path, []byte("\n  Jane Doe, Go engineer  \n"), 0o600); err != nil {
		t.Fatalf("write cv: %v", err)
	}

	text, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText returned error: %v", err)
	}
	if text != "Jane Doe, Go engineer" {
		t.Fatalf("unexpected text %q", text)
	}

	empty := filepath.Join(dir, "empty.md")
	if err := os.WriteFile(empty, []byte(" \n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if _, err := LoadText(empty); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	if _, err := LoadText(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.txt")
	if err := os.WriteFile(path, []byte("---JOB 1---\n"+posting), 0o600); err != nil {
		t.Fatalf("write jobs: %v", err)
	}

	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatalf("LoadJobs returned error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Senior Go Developer" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}
