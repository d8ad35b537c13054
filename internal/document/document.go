package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
)

var (
	ErrEmpty    = errors.New("document is empty")
	ErrTemplate = errors.New("document still contains template placeholders")

	jobSeparator = regexp.MustCompile(`(?i)---\s*JOB\s*\d*\s*---`)

	titleKeywords = []string{"engineer", "developer", "analyst", "manager", "intern", "specialist"}
)

const (
	minJobLength   = 100
	maxTitleLength = 80
	defaultTitle   = "Job Description"
)

// Job is one posting taken from a job descriptions file.
type Job struct {
	Number  int
	Title   string
	Content string
}

// LoadText reads a CV or job file. Office and PDF formats go through docconv.
func LoadText(path string) (string, error) {
	var text string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", path, err)
		}
		text = res.Body
	default:
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		text = string(content)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmpty)
	}

	return text, nil
}

// LoadJobs reads a job descriptions file and splits it into postings.
func LoadJobs(path string) ([]Job, error) {
	text, err := LoadText(path)
	if err != nil {
		return nil, err
	}

	jobs, err := SplitJobs(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// SplitJobs splits content on ---JOB N--- separators. Without separators the
// whole content is one job. Sections too short to be a posting are dropped.
func SplitJobs(content string) ([]Job, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmpty
	}

	sections := jobSeparator.Split(content, -1)
	if len(sections) <= 1 {
		if strings.Contains(content, "JOB DESCRIPTION TEMPLATE") || strings.Contains(content, "[JOB TITLE]") {
			return nil, ErrTemplate
		}
		return []Job{{Number: 1, Title: ExtractTitle(content), Content: content}}, nil
	}

	var jobs []Job
	for i, section := range sections {
		section = strings.TrimSpace(section)
		if len(section) <= minJobLength {
			continue
		}

		title := ExtractTitle(section)
		if title == defaultTitle {
			title = fmt.Sprintf("Job %d", i)
		}
		jobs = append(jobs, Job{Number: i, Title: title, Content: section})
	}

	if len(jobs) == 0 {
		return nil, ErrEmpty
	}
	return jobs, nil
}

// ExtractTitle picks a job title from the first lines of a posting.
func ExtractTitle(content string) string {
	lines := strings.Split(content, "\n")

	for _, line := range head(lines, 10) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Logo") {
			continue
		}
		lower := strings.ToLower(line)
		for _, keyword := range titleKeywords {
			if strings.Contains(lower, keyword) {
				return truncate(line, maxTitleLength)
			}
		}
	}

	for _, line := range head(lines, 5) {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < 100 {
			return line
		}
	}

	return defaultTitle
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
