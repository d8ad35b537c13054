package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/interview"
	"github.com/spigell/cv-advisor/internal/logger"
	"github.com/spigell/cv-advisor/internal/recommendation"
	"go.uber.org/zap"
)

var validate = validator.New()

type Analyzer interface {
	Run(ctx context.Context, cv, job string) (*analysis.Result, error)
}

type Interviewer interface {
	Run(ctx context.Context, channel interview.Channel, seed interview.Seed) (*interview.Summary, error)
}

type Recommender interface {
	Run(ctx context.Context, in recommendation.Input) (string, error)
}

// Archive stores completed reports.
type Archive interface {
	Save(ctx context.Context, report *FinalReport) error
}

// Input is one CV and job pair to advise on.
type Input struct {
	SessionID string
	JobTitle  string
	CV        string `validate:"required"`
	Job       string `validate:"required"`
}

// Deps are built once per run by the caller and owned by the Controller.
type Deps struct {
	Analyzer    Analyzer
	Interviewer Interviewer
	Recommender Recommender
	// Archive is optional.
	Archive    Archive
	Logger     *zap.Logger
	OnProgress ProgressCallback
}

// Controller sequences analysis, the optional interview and the recommendation.
type Controller struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Controller {
	return &Controller{
		deps:   deps,
		logger: logger.WithFields(deps.Logger, zap.String(logger.FieldStage, "workflow")),
	}
}

// Run drives one session to Complete. The channel is only used when the
// analysis asks for an interview. Failures are returned as *StageError.
func (c *Controller) Run(ctx context.Context, in Input, channel interview.Channel) (*FinalReport, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid workflow input: %w", err)
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	log := logger.WithFields(c.logger, logger.SessionFields(in.SessionID, in.JobTitle)...)
	report := &FinalReport{SessionID: in.SessionID, JobTitle: in.JobTitle}

	c.transition(report, log, Analyzing, "analyzing CV against the job", nil)
	result, err := c.deps.Analyzer.Run(ctx, in.CV, in.Job)
	if err != nil {
		return nil, c.fail(log, StageAnalysis, err)
	}
	report.Analysis = result

	if result.Decision.NeedsInterview {
		c.transition(report, log, AwaitingQnA, "clarification needed: "+result.Decision.Reason, result.Decision)

		if channel == nil {
			return nil, c.fail(log, StageInterview, errors.New("interview required but no user channel is available"))
		}

		c.transition(report, log, Interviewing, "starting Q&A", nil)
		summary, err := c.deps.Interviewer.Run(ctx, channel, interview.Seed{
			SessionID: in.SessionID,
			CV:        in.CV,
			Job:       in.Job,
			Analysis:  result,
		})
		if err != nil {
			return nil, c.fail(log, StageInterview, err)
		}
		report.Interview = summary
	}

	c.transition(report, log, Recommending, "generating recommendation", nil)
	text, err := c.deps.Recommender.Run(ctx, recommendation.Input{
		CV:        in.CV,
		Job:       in.Job,
		Analysis:  result,
		Interview: report.Interview,
	})
	if err != nil {
		return nil, c.fail(log, StageRecommendation, err)
	}
	report.Recommendation = text
	report.CreatedAt = time.Now().UTC()

	c.transition(report, log, Complete, "recommendation ready", nil)

	if c.deps.Archive != nil {
		if err := c.deps.Archive.Save(ctx, report); err != nil {
			log.Warn("archiving report", zap.Error(err))
		}
	}

	return report, nil
}

func (c *Controller) transition(report *FinalReport, log *zap.Logger, state State, message string, content any) {
	report.States = append(report.States, state)
	log.Info("workflow state", zap.Stringer("state", state), zap.String("message", message))

	if c.deps.OnProgress != nil {
		c.deps.OnProgress(Event{
			State:     state,
			Step:      state.String(),
			Message:   message,
			SessionID: report.SessionID,
			Content:   content,
		})
	}
}

func (c *Controller) fail(log *zap.Logger, stage Stage, err error) error {
	log.Error("workflow stage failed", zap.String("failed_stage", string(stage)), zap.Error(err))
	return &StageError{Stage: stage, Err: err}
}
