package workflow

import (
	"strings"
	"time"

	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/interview"
)

// FinalReport is the artifact of a completed workflow.
type FinalReport struct {
	SessionID      string
	JobTitle       string
	Analysis       *analysis.Result
	Interview      *interview.Summary
	Recommendation string
	States         []State
	CreatedAt      time.Time
}

// Render concatenates the analysis, Q&A and recommendation sections under literal headers.
func (r *FinalReport) Render() string {
	var sb strings.Builder

	sb.WriteString("# Analysis\n\n")
	sb.WriteString(r.Analysis.Render())

	sb.WriteString("\n\n# Q&A\n\n")
	if r.Interview == nil {
		reason := "no clarification needed"
		if r.Analysis != nil && r.Analysis.Decision.Reason != "" {
			reason = r.Analysis.Decision.Reason
		}
		sb.WriteString("Q&A skipped: ")
		sb.WriteString(reason)
	} else {
		sb.WriteString(r.Interview.Render())
	}

	sb.WriteString("\n\n# Recommendation\n\n")
	sb.WriteString(strings.TrimSpace(r.Recommendation))
	sb.WriteString("\n")

	return sb.String()
}

// InterviewSkipped reports whether the workflow went straight to recommending.
func (r *FinalReport) InterviewSkipped() bool {
	return r.Interview == nil
}
