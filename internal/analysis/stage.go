package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Result is the outcome of one analysis. Report is nil when the analyzer
// answer could not be parsed; Decision then fails open.
type Result struct {
	Report   *Report
	Decision Decision
	Raw      string
	ParseErr error
}

func (r *Result) Parsed() bool {
	return r != nil && r.Report != nil
}

// Stage asks the analyzer persona once and routes the report through the Gate.
type Stage struct {
	oracle    ai.Oracle
	gate      Gate
	logger    *zap.Logger
	maxLogLen int
}

func NewStage(oracle ai.Oracle, gate Gate, logger *zap.Logger, maxLogLength int) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Stage{oracle: oracle, gate: gate, logger: logger, maxLogLen: maxLogLength}
}

// Run fails only when the oracle cannot be reached. An unparsable answer is
// reported through Result.ParseErr.
func (s *Stage) Run(ctx context.Context, cv, job string) (*Result, error) {
	prompt := BuildPrompt(cv, job)

	s.logger.Debug("analysis request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.oracle.Generate(ctx, ai.Request{Persona: ai.PersonaAnalyzer, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("analyze cv against job: %w", err)
	}

	s.logger.Debug("analysis response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	result := &Result{Raw: raw}
	report, err := Parse(raw)
	if err != nil {
		s.logger.Warn("analysis report is unparsable, interview is required", zap.Error(err))
		result.ParseErr = err
	} else {
		result.Report = report
	}

	result.Decision = s.gate.Decide(result.Report)

	s.logger.Info("analysis finished",
		zap.Int("score", result.Decision.Score),
		zap.Int("must_gaps", result.Decision.MustGaps),
		zap.Bool("needs_interview", result.Decision.NeedsInterview),
		zap.String("reason", result.Decision.Reason),
	)

	return result, nil
}

// BuildPrompt renders the analyzer input.
func BuildPrompt(cv, job string) string {
	var sb strings.Builder
	sb.WriteString("Analyze this CV against the job posting and return the JSON report.\n\n")
	sb.WriteString("CV:\n")
	sb.WriteString(strings.TrimSpace(cv))
	sb.WriteString("\n\nJOB POSTING:\n")
	sb.WriteString(strings.TrimSpace(job))
	return sb.String()
}

// Render formats the analysis section of the final report.
func (r *Result) Render() string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Preliminary score: %d\n", r.Decision.Score)
	fmt.Fprintf(&sb, "Interview needed: %t (%s)\n", r.Decision.NeedsInterview, r.Decision.Reason)

	if r.Report == nil {
		sb.WriteString("\nThe analysis could not be parsed. Raw analyzer output:\n")
		sb.WriteString(strings.TrimSpace(r.Raw))
		return sb.String()
	}

	if len(r.Report.MatchedSkills) > 0 {
		sb.WriteString("\nMatched skills:\n")
		for _, skill := range r.Report.MatchedSkills {
			fmt.Fprintf(&sb, "- %s [%s]", skill.Name, skill.RequirementType)
			if skill.Evidence != "" {
				fmt.Fprintf(&sb, ": %s", skill.Evidence)
			}
			sb.WriteString("\n")
		}
	}

	if len(r.Report.Gaps) > 0 {
		sb.WriteString("\nGaps:\n")
		for _, gap := range r.Report.Gaps {
			fmt.Fprintf(&sb, "- %s [%s, %s priority]", gap.Name, gap.RequirementType, gap.Priority)
			if gap.Rationale != "" {
				fmt.Fprintf(&sb, ": %s", gap.Rationale)
			}
			sb.WriteString("\n")
		}
	}

	if r.Report.Notes != "" {
		fmt.Fprintf(&sb, "\nNotes: %s\n", r.Report.Notes)
	}

	return strings.TrimRight(sb.String(), "\n")
}
