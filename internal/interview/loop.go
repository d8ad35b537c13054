package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/spigell/cv-advisor/internal/logger"
	"github.com/spigell/cv-advisor/internal/transcript"
	"github.com/spigell/cv-advisor/internal/validation"
	"go.uber.org/zap"
)

const (
	DefaultCancelKeyword          = "done"
	DefaultEndKeyword             = "n"
	DefaultTargetEvery            = 5
	DefaultMinTranscriptForWrapUp = 10
	DefaultMaxTurns               = 40
)

// Config holds the interview policy. Zero values fall back to the defaults.
type Config struct {
	CancelKeyword          string   `mapstructure:"cancel-keyword"`
	EndKeyword             string   `mapstructure:"end-keyword"`
	TargetEvery            int      `mapstructure:"target-every" validate:"gte=0"`
	MinTranscriptForWrapUp int      `mapstructure:"min-transcript-for-wrap-up" validate:"gte=0"`
	MaxTurns               int      `mapstructure:"max-turns" validate:"gte=0"`
	PriorityKeywords       []string `mapstructure:"priority-keywords"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.CancelKeyword) == "" {
		c.CancelKeyword = DefaultCancelKeyword
	}
	if strings.TrimSpace(c.EndKeyword) == "" {
		c.EndKeyword = DefaultEndKeyword
	}
	if c.TargetEvery <= 0 {
		c.TargetEvery = DefaultTargetEvery
	}
	if c.MinTranscriptForWrapUp <= 0 {
		c.MinTranscriptForWrapUp = DefaultMinTranscriptForWrapUp
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if len(c.PriorityKeywords) == 0 {
		c.PriorityKeywords = DefaultPriorityKeywords
	}
	return c
}

// Evaluator judges which gaps the conversation covered.
type Evaluator interface {
	Evaluate(ctx context.Context, set gaps.Set, recent []transcript.Turn, termination bool) validation.Verdict
	Window() int
}

// Deps are the collaborators of one Loop.
type Deps struct {
	Oracle    ai.Oracle
	Validator Evaluator
	Store     gaps.Store
	Logger    *zap.Logger
	// TerminationDetector defaults to NewTerminationDetector.
	TerminationDetector Detector
	// AssessmentDetector defaults to NewAssessmentDetector.
	AssessmentDetector Detector
	// OnState observes every state the loop enters.
	OnState func(State)
}

// Seed is the context an interview starts from.
type Seed struct {
	SessionID string
	CV        string
	Job       string
	Analysis  *analysis.Result
}

// Summary is the terminal artifact of an interview.
type Summary struct {
	Text          string
	Outcome       Outcome
	Transcript    []transcript.Turn
	RemainingGaps []string
}

// Render formats the Q&A section of the final report.
func (s *Summary) Render() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("Outcome: %s\n\n%s", s.Outcome, strings.TrimSpace(s.Text))
}

// Loop drives one interview over a Channel.
type Loop struct {
	cfg      Config
	deps     Deps
	selector GapSelector
	logger   *zap.Logger
}

func New(cfg Config, deps Deps) *Loop {
	cfg = cfg.withDefaults()
	if deps.TerminationDetector == nil {
		deps.TerminationDetector = NewTerminationDetector()
	}
	if deps.AssessmentDetector == nil {
		deps.AssessmentDetector = NewAssessmentDetector()
	}
	if deps.Store == nil {
		deps.Store = gaps.NewMemoryStore()
	}

	return &Loop{
		cfg:      cfg,
		deps:     deps,
		selector: GapSelector{Keywords: cfg.PriorityKeywords},
		logger:   logger.WithFields(deps.Logger, zap.String(logger.FieldStage, "interview")),
	}
}

// session is the mutable state of one Run.
type session struct {
	id         string
	channel    Channel
	thread     *ai.Thread
	transcript *transcript.Transcript
	gaps       gaps.Set
	state      State
	logger     *zap.Logger
}

// Run conducts the interview until it reaches Done. Only interviewer failures,
// channel write failures and cancellation end it with an error.
func (l *Loop) Run(ctx context.Context, channel Channel, seed Seed) (*Summary, error) {
	if channel == nil {
		return nil, errors.New("interview channel is required")
	}
	if l.deps.Oracle == nil || l.deps.Validator == nil {
		return nil, errors.New("interview oracle and validator are required")
	}

	unlock, err := l.deps.Store.Lock(ctx, seed.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lock interview session: %w", err)
	}

	s := &session{
		id:         seed.SessionID,
		channel:    channel,
		thread:     ai.NewThread(),
		transcript: transcript.New(),
		gaps:       seedGaps(seed),
		logger:     logger.WithFields(l.logger, logger.SessionFields(seed.SessionID)...),
	}

	defer func() {
		cleanup := context.WithoutCancel(ctx)
		if err := l.deps.Store.Delete(cleanup, s.id); err != nil {
			s.logger.Warn("deleting interview gaps", zap.Error(err))
		}
		if err := unlock(cleanup); err != nil {
			s.logger.Warn("releasing interview session", zap.Error(err))
		}
	}()

	l.persist(ctx, s)
	l.enter(s, Started)
	s.logger.Info("interview started", zap.Strings("gaps", s.gaps.Snapshot()))

	if _, err := l.converse(ctx, s, seedPrompt(seed, s.gaps)); err != nil {
		return nil, err
	}
	l.enter(s, Exchanging)

	for {
		input, err := channel.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return l.finish(s, OutcomeChannelClosed, UserEndedSummary(s.transcript.String())), nil
			}
			return nil, fmt.Errorf("receive user turn: %w", err)
		}
		input = strings.TrimSpace(input)

		if strings.EqualFold(input, l.cfg.CancelKeyword) {
			return l.finish(s, OutcomeUserEnded, UserEndedSummary(s.transcript.String())), nil
		}

		s.transcript.Append(transcript.User, input)

		var summary *Summary
		if s.state == WrapUp {
			summary, err = l.wrapUpTurn(ctx, s, input)
		} else {
			summary, err = l.exchangeTurn(ctx, s, input)
		}
		if err != nil {
			return nil, err
		}
		if summary != nil {
			return summary, nil
		}

		if s.transcript.UserTurns() >= l.cfg.MaxTurns {
			s.logger.Warn("interview reached the turn limit", zap.Int("max_turns", l.cfg.MaxTurns))
			return l.finalAssessment(ctx, s, OutcomeTurnLimit)
		}
	}
}

func (l *Loop) exchangeTurn(ctx context.Context, s *session, input string) (*Summary, error) {
	prompt := input
	if s.transcript.UserTurns()%l.cfg.TargetEvery == 0 && !s.gaps.IsEmpty() {
		l.enter(s, GapTargeting)
		target, _ := l.selector.Select(s.gaps)
		s.logger.Debug("steering conversation", zap.String("target", target))
		prompt = steeringPrompt(input, target)
	}

	reply, err := l.converse(ctx, s, prompt)
	if err != nil {
		return nil, err
	}
	if l.deps.AssessmentDetector.Detect(reply) {
		return l.finish(s, OutcomeAssessmentDetected, reply), nil
	}

	verdict := l.validate(ctx, s, false)

	switch {
	case l.deps.TerminationDetector.Detect(reply):
		l.enter(s, WrapUp)
	case verdict.Ready && s.transcript.Len() >= l.cfg.MinTranscriptForWrapUp:
		s.logger.Debug("validator is ready, asking the wrap-up question")
		wrapUp, err := l.converse(ctx, s, forcedWrapUpPrompt())
		if err != nil {
			return nil, err
		}
		if l.deps.AssessmentDetector.Detect(wrapUp) {
			return l.finish(s, OutcomeAssessmentDetected, wrapUp), nil
		}
		l.enter(s, WrapUp)
	default:
		l.enter(s, Exchanging)
	}

	return nil, nil
}

func (l *Loop) wrapUpTurn(ctx context.Context, s *session, input string) (*Summary, error) {
	if strings.EqualFold(input, l.cfg.EndKeyword) {
		return l.terminationCheck(ctx, s)
	}

	reply, err := l.converse(ctx, s, wrapUpPrompt(input))
	if err != nil {
		return nil, err
	}
	if l.deps.AssessmentDetector.Detect(reply) {
		return l.finish(s, OutcomeAssessmentDetected, reply), nil
	}

	l.validate(ctx, s, false)
	l.enter(s, WrapUp)
	return nil, nil
}

func (l *Loop) terminationCheck(ctx context.Context, s *session) (*Summary, error) {
	l.enter(s, TerminationCheck)

	verdict := l.validate(ctx, s, true)
	if verdict.Ready || s.gaps.IsEmpty() {
		return l.finalAssessment(ctx, s, OutcomeValidated)
	}

	remaining := s.gaps.Snapshot()
	s.logger.Info("termination rejected, topics remain", zap.Strings("gaps", remaining))

	if err := s.channel.Send(ctx, remainingNotice(remaining)); err != nil {
		return nil, fmt.Errorf("send advisor reply: %w", err)
	}
	reply, err := l.converse(ctx, s, continuePrompt(remaining))
	if err != nil {
		return nil, err
	}

	switch {
	case l.deps.AssessmentDetector.Detect(reply):
		return l.finish(s, OutcomeAssessmentDetected, reply), nil
	case l.deps.TerminationDetector.Detect(reply):
		l.enter(s, WrapUp)
	default:
		l.enter(s, Exchanging)
	}
	return nil, nil
}

func (l *Loop) finalAssessment(ctx context.Context, s *session, outcome Outcome) (*Summary, error) {
	assessment, err := l.deps.Oracle.Generate(ctx, ai.Request{
		Persona: ai.PersonaInterviewer,
		Prompt:  finalAssessmentPrompt(s.transcript.String()),
		Thread:  s.thread,
		JSON:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("final interview assessment: %w", err)
	}
	return l.finish(s, outcome, assessment), nil
}

// validate runs the validator and adopts its gap set unless it failed.
func (l *Loop) validate(ctx context.Context, s *session, termination bool) validation.Verdict {
	verdict := l.deps.Validator.Evaluate(ctx, s.gaps, s.transcript.Last(l.deps.Validator.Window()), termination)
	if verdict.Failed {
		return verdict
	}

	s.gaps = verdict.Remaining
	l.persist(ctx, s)
	return verdict
}

// converse asks the interviewer, delivers the reply and records it.
func (l *Loop) converse(ctx context.Context, s *session, prompt string) (string, error) {
	req := ai.Request{Persona: ai.PersonaInterviewer, Prompt: prompt, Thread: s.thread}

	streamer, ok := s.channel.(StreamChannel)
	if !ok {
		reply, err := l.deps.Oracle.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("interviewer reply: %w", err)
		}
		if err := s.channel.Send(ctx, reply); err != nil {
			return "", fmt.Errorf("send advisor reply: %w", err)
		}
		s.transcript.Append(transcript.Advisor, reply)
		return reply, nil
	}

	var sendErr error
	reply, err := ai.Ask(ctx, l.deps.Oracle, req, func(chunk string) {
		if sendErr == nil {
			sendErr = streamer.SendChunk(ctx, chunk)
		}
	})
	if err != nil {
		return "", fmt.Errorf("interviewer reply: %w", err)
	}
	if sendErr == nil {
		sendErr = streamer.Flush(ctx)
	}
	if sendErr != nil {
		return "", fmt.Errorf("send advisor reply: %w", sendErr)
	}

	s.transcript.Append(transcript.Advisor, reply)
	return reply, nil
}

func (l *Loop) finish(s *session, outcome Outcome, text string) *Summary {
	l.enter(s, Done)
	s.logger.Info("interview finished",
		zap.String("outcome", string(outcome)),
		zap.Int("user_turns", s.transcript.UserTurns()),
		zap.Int("remaining_gaps", s.gaps.Len()),
	)

	return &Summary{
		Text:          text,
		Outcome:       outcome,
		Transcript:    s.transcript.All(),
		RemainingGaps: s.gaps.Snapshot(),
	}
}

func (l *Loop) persist(ctx context.Context, s *session) {
	if err := l.deps.Store.Save(ctx, s.id, s.gaps); err != nil {
		s.logger.Warn("saving interview gaps", zap.Error(err))
	}
}

func (l *Loop) enter(s *session, state State) {
	s.state = state
	if l.deps.OnState != nil {
		l.deps.OnState(state)
	}
}

func seedGaps(seed Seed) gaps.Set {
	var names []string
	var report *analysis.Report
	if seed.Analysis != nil {
		report = seed.Analysis.Report
	}
	names = append(names, report.GapNames()...)
	names = append(names, gaps.FromJob(seed.Job)...)

	set := gaps.Initialize(names)
	if report != nil {
		for _, gap := range report.Gaps {
			set = set.Describe(gap.Name, gap.Rationale)
		}
	}
	return set
}
