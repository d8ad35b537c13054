package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/interview"
	"github.com/spigell/cv-advisor/internal/transcript"
	"github.com/spigell/cv-advisor/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Input is everything the recommender sees. Interview is nil when it was skipped.
type Input struct {
	CV        string
	Job       string
	Analysis  *analysis.Result
	Interview *interview.Summary
}

// Stage asks the recommender persona once for the final advice.
type Stage struct {
	oracle    ai.Oracle
	logger    *zap.Logger
	maxLogLen int
}

func NewStage(oracle ai.Oracle, logger *zap.Logger, maxLogLength int) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Stage{oracle: oracle, logger: logger, maxLogLen: maxLogLength}
}

// Run returns the recommendation text. Every oracle failure is returned.
func (s *Stage) Run(ctx context.Context, in Input) (string, error) {
	if in.Analysis == nil {
		return "", errors.New("analysis result is required")
	}

	prompt := BuildPrompt(in)
	s.logger.Debug("recommendation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	text, err := s.oracle.Generate(ctx, ai.Request{Persona: ai.PersonaRecommender, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("recommend: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("recommend: %w", ai.ErrOracleUnavailable)
	}

	s.logger.Debug("recommendation response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, s.maxLogLen)),
	)

	return text, nil
}

// BuildPrompt renders the recommender input.
func BuildPrompt(in Input) string {
	var sb strings.Builder

	sb.WriteString("INITIAL ANALYSIS:\n")
	if in.Analysis != nil && in.Analysis.Raw != "" && !in.Analysis.Parsed() {
		sb.WriteString(strings.TrimSpace(in.Analysis.Raw))
	} else {
		sb.WriteString(in.Analysis.Render())
	}

	sb.WriteString("\n\nQ&A INSIGHTS:\n")
	if in.Interview == nil {
		sb.WriteString("No Q&A session was needed.")
	} else {
		sb.WriteString(strings.TrimSpace(in.Interview.Text))
		if len(in.Interview.RemainingGaps) > 0 {
			sb.WriteString("\n\nTopics still open after the conversation:\n- ")
			sb.WriteString(strings.Join(in.Interview.RemainingGaps, "\n- "))
		}
		sb.WriteString("\n\nFULL CONVERSATION:\n")
		sb.WriteString(transcript.Format(in.Interview.Transcript))
	}

	sb.WriteString("\n\nCV:\n")
	sb.WriteString(strings.TrimSpace(in.CV))
	sb.WriteString("\n\nJOB DESCRIPTION:\n")
	sb.WriteString(strings.TrimSpace(in.Job))
	sb.WriteString("\n\nGive your recommendation in the format from your instructions.")

	return sb.String()
}
