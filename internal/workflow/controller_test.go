package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/interview"
	"github.com/spigell/cv-advisor/internal/recommendation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type analyzerFunc func(ctx context.Context, cv, job string) (*analysis.Result, error)

func (f analyzerFunc) Run(ctx context.Context, cv, job string) (*analysis.Result, error) {
	return f(ctx, cv, job)
}

type fakeInterviewer struct {
	calls   int
	seed    interview.Seed
	summary *interview.Summary
	err     error
}

func (f *fakeInterviewer) Run(_ context.Context, _ interview.Channel, seed interview.Seed) (*interview.Summary, error) {
	f.calls++
	f.seed = seed
	return f.summary, f.err
}

type fakeRecommender struct {
	calls int
	input recommendation.Input
	text  string
	err   error
}

func (f *fakeRecommender) Run(_ context.Context, in recommendation.Input) (string, error) {
	f.calls++
	f.input = in
	return f.text, f.err
}

type fakeArchive struct {
	mu      sync.Mutex
	reports []*FinalReport
	err     error
}

func (f *fakeArchive) Save(_ context.Context, report *FinalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return f.err
}

type nopChannel struct{}

func (nopChannel) Receive(context.Context) (string, error) { return "", nil }
func (nopChannel) Send(context.Context, string) error      { return nil }

func strongMatch() *analysis.Result {
	report := &analysis.Report{
		MatchedSkills: []analysis.MatchedSkill{
			{Name: "Go", Evidence: "5 years", RequirementType: analysis.Must},
			{Name: "Docker", Evidence: "compose setups", RequirementType: analysis.Nice},
		},
		Gaps: []analysis.Gap{
			{Name: "Helm", Rationale: "not in CV", Priority: analysis.Low, RequirementType: analysis.Nice},
		},
	}
	report.PreliminaryScore = analysis.Score(report)
	return &analysis.Result{
		Report:   report,
		Decision: analysis.NewGate(0).Decide(report),
		Raw:      `{"matched_skills":[{"name":"Go"},{"name":"Docker"}],"gaps":[{"name":"Helm"}]}`,
	}
}

func weakMatch() *analysis.Result {
	report := &analysis.Report{
		Gaps: []analysis.Gap{
			{Name: "Kubernetes", Rationale: "not in CV", Priority: analysis.High, RequirementType: analysis.Must},
		},
	}
	report.PreliminaryScore = analysis.Score(report)
	return &analysis.Result{Report: report, Decision: analysis.NewGate(0).Decide(report)}
}

func TestStrongMatchSkipsInterview(t *testing.T) {
	interviewer := &fakeInterviewer{}
	recommender := &fakeRecommender{text: "Apply with confidence."}
	archive := &fakeArchive{}
	var events []Event

	controller := New(Deps{
		Analyzer:    analyzerFunc(func(context.Context, string, string) (*analysis.Result, error) { return strongMatch(), nil }),
		Interviewer: interviewer,
		Recommender: recommender,
		Archive:     archive,
		OnProgress:  func(e Event) { events = append(events, e) },
	})

	report, err := controller.Run(context.Background(), Input{CV: "cv", Job: "job", JobTitle: "Go Engineer"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, interviewer.calls)
	assert.Equal(t, 1, recommender.calls)
	assert.Nil(t, recommender.input.Interview)
	assert.True(t, report.InterviewSkipped())
	assert.Equal(t, []State{Analyzing, Recommending, Complete}, report.States)
	assert.NotEmpty(t, report.SessionID)
	assert.False(t, report.CreatedAt.IsZero())

	rendered := report.Render()
	assert.Contains(t, rendered, "# Analysis")
	assert.Contains(t, rendered, "Q&A skipped: score 85 meets threshold 75")
	assert.Contains(t, rendered, "# Recommendation\n\nApply with confidence.")
	assert.Less(t, strings.Index(rendered, "# Analysis"), strings.Index(rendered, "# Q&A"))
	assert.Less(t, strings.Index(rendered, "# Q&A"), strings.Index(rendered, "# Recommendation"))

	require.Len(t, events, 3)
	assert.Equal(t, "complete", events[2].Step)
	assert.Equal(t, report.SessionID, events[0].SessionID)

	require.Len(t, archive.reports, 1)
	assert.Same(t, report, archive.reports[0])
}

func TestWeakMatchRunsInterview(t *testing.T) {
	summary := &interview.Summary{Text: "Knows k8s from side projects.", Outcome: interview.OutcomeValidated}
	interviewer := &fakeInterviewer{summary: summary}
	recommender := &fakeRecommender{text: "Highlight the side projects."}

	controller := New(Deps{
		Analyzer:    analyzerFunc(func(context.Context, string, string) (*analysis.Result, error) { return weakMatch(), nil }),
		Interviewer: interviewer,
		Recommender: recommender,
	})

	report, err := controller.Run(context.Background(), Input{SessionID: "s-1", CV: "cv", Job: "job"}, nopChannel{})
	require.NoError(t, err)

	assert.Equal(t, 1, interviewer.calls)
	assert.Equal(t, "s-1", interviewer.seed.SessionID)
	assert.Same(t, summary, recommender.input.Interview)
	assert.Equal(t, []State{Analyzing, AwaitingQnA, Interviewing, Recommending, Complete}, report.States)
	assert.Contains(t, report.Render(), "Knows k8s from side projects.")
	assert.NotContains(t, report.Render(), "Q&A skipped")
}

func TestStageFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		analyzer    analyzerFunc
		interviewer *fakeInterviewer
		recommender *fakeRecommender
		channel     interview.Channel
		stage       Stage
	}{
		{
			name:        "analysis",
			analyzer:    func(context.Context, string, string) (*analysis.Result, error) { return nil, boom },
			interviewer: &fakeInterviewer{},
			recommender: &fakeRecommender{},
			channel:     nopChannel{},
			stage:       StageAnalysis,
		},
		{
			name:        "interview",
			analyzer:    func(context.Context, string, string) (*analysis.Result, error) { return weakMatch(), nil },
			interviewer: &fakeInterviewer{err: boom},
			recommender: &fakeRecommender{},
			channel:     nopChannel{},
			stage:       StageInterview,
		},
		{
			name:        "interview without channel",
			analyzer:    func(context.Context, string, string) (*analysis.Result, error) { return weakMatch(), nil },
			interviewer: &fakeInterviewer{},
			recommender: &fakeRecommender{},
			stage:       StageInterview,
		},
		{
			name:        "recommendation",
			analyzer:    func(context.Context, string, string) (*analysis.Result, error) { return strongMatch(), nil },
			interviewer: &fakeInterviewer{},
			recommender: &fakeRecommender{err: boom},
			stage:       StageRecommendation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			archive := &fakeArchive{}

			controller := New(Deps{
				Analyzer:    tt.analyzer,
				Interviewer: tt.interviewer,
				Recommender: tt.recommender,
				Archive:     archive,
				Logger:      zap.New(core),
			})

			report, err := controller.Run(context.Background(), Input{CV: "cv", Job: "job"}, tt.channel)
			require.Error(t, err)
			assert.Nil(t, report)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.Contains(t, err.Error(), string(tt.stage))

			if tt.stage == StageAnalysis {
				assert.Equal(t, 0, tt.interviewer.calls)
				assert.Equal(t, 0, tt.recommender.calls)
			}
			if tt.stage == StageInterview {
				assert.Equal(t, 0, tt.recommender.calls)
			}
			assert.Empty(t, archive.reports)
			assert.Equal(t, 1, logs.FilterMessage("workflow stage failed").Len())
		})
	}
}

func TestRunRejectsMissingInput(t *testing.T) {
	controller := New(Deps{})

	_, err := controller.Run(context.Background(), Input{CV: "cv"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow input")
}

func TestArchiveFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	controller := New(Deps{
		Analyzer:    analyzerFunc(func(context.Context, string, string) (*analysis.Result, error) { return strongMatch(), nil }),
		Interviewer: &fakeInterviewer{},
		Recommender: &fakeRecommender{text: "ok"},
		Archive:     &fakeArchive{err: errors.New("db down")},
		Logger:      zap.New(core),
	})

	report, err := controller.Run(context.Background(), Input{CV: "cv", Job: "job"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Recommendation)
	assert.Equal(t, 1, logs.FilterMessage("archiving report").Len())
}
