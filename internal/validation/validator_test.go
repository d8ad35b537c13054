package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/spigell/cv-advisor/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubOracle struct {
	answer string
	err    error
	calls  int
	last   ai.Request
}

func (s *stubOracle) Generate(_ context.Context, req ai.Request) (string, error) {
	s.calls++
	s.last = req
	return s.answer, s.err
}

func turns(texts ...string) []transcript.Turn {
	tr := transcript.New()
	for i, text := range texts {
		speaker := transcript.Advisor
		if i%2 == 1 {
			speaker = transcript.User
		}
		tr.Append(speaker, text)
	}
	return tr.All()
}

func TestEvaluateRemovesAcknowledgedGap(t *testing.T) {
	oracle := &stubOracle{answer: `{"remove": ["Kubernetes experience"], "keep": [], "decision": "CONTINUE", "reasoning": "explicit acknowledgment"}`}
	validator := New(oracle, zap.NewNop(), 0, 0)

	set := gaps.Initialize([]string{"Kubernetes experience"})
	verdict := validator.Evaluate(context.Background(), set,
		turns("Have you run containers in production?", "I have never used Kubernetes."), false)

	require.False(t, verdict.Failed)
	assert.False(t, verdict.Ready)
	assert.Equal(t, []string{"Kubernetes experience"}, verdict.Removed)
	assert.Equal(t, gaps.Mandatory, verdict.Remaining.Snapshot())
	assert.Equal(t, "explicit acknowledgment", verdict.Reasoning)
	assert.Equal(t, ai.PersonaValidator, oracle.last.Persona)
	assert.True(t, oracle.last.JSON)
}

func TestEvaluateFailureKeepsGaps(t *testing.T) {
	tests := []struct {
		name   string
		oracle *stubOracle
	}{
		{name: "oracle timeout", oracle: &stubOracle{err: context.DeadlineExceeded}},
		{name: "unparsable answer", oracle: &stubOracle{answer: "I think they did fine."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			validator := New(tt.oracle, zap.New(core), 0, 0)
			set := gaps.Initialize([]string{"Go"})

			verdict := validator.Evaluate(context.Background(), set, turns("q?", "a"), true)

			assert.True(t, verdict.Failed)
			assert.False(t, verdict.Ready)
			assert.Error(t, verdict.Err)
			assert.Equal(t, set.Snapshot(), verdict.Remaining.Snapshot())
			assert.Equal(t, 1, logs.FilterMessage("validation failed, keeping gaps").Len())
		})
	}
}

func TestEvaluateWithoutGapsIsReady(t *testing.T) {
	oracle := &stubOracle{}
	validator := New(oracle, nil, 0, 0)

	verdict := validator.Evaluate(context.Background(), gaps.FromEntries(nil), nil, true)

	assert.True(t, verdict.Ready)
	assert.Zero(t, oracle.calls)
}

func TestEvaluateSendsOnlyRecentWindow(t *testing.T) {
	oracle := &stubOracle{answer: `{"decision": "CONTINUE"}`}
	validator := New(oracle, nil, 0, 0)

	validator.Evaluate(context.Background(), gaps.Initialize(nil),
		turns("first?", "one", "second?", "two", "third?", "three"), false)

	assert.NotContains(t, oracle.last.Prompt, "first?")
	assert.NotContains(t, oracle.last.Prompt, "user: one")
	assert.Contains(t, oracle.last.Prompt, "advisor: second?")
	assert.Contains(t, oracle.last.Prompt, "user: three")
	assert.Equal(t, DefaultWindow, validator.Window())
}

func TestBuildPromptTerminationMode(t *testing.T) {
	set := gaps.Initialize([]string{"Go"}).Describe("Go", "no Go in CV")

	regular := BuildPrompt(set, nil, false)
	strict := BuildPrompt(set, nil, true)

	assert.Contains(t, regular, "- Go: no Go in CV")
	assert.NotContains(t, regular, "wants to end")
	assert.Contains(t, strict, "wants to end")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		remove      []string
		ready       bool
		expectError bool
	}{
		{
			name:   "json ready",
			raw:    "```json\n{\"remove\": [\"Networking\"], \"decision\": \"READY\"}\n```",
			remove: []string{"Networking"},
			ready:  true,
		},
		{
			name:   "json with single string and none",
			raw:    `{"remove": "none", "keep": "Go", "decision": "continue"}`,
			remove: []string{},
			ready:  false,
		},
		{
			name:   "markers with stop",
			raw:    "REMOVE: networking, CI/CD\nKEEP: none\nDECISION: STOP - all covered",
			remove: []string{"networking", "CI/CD"},
			ready:  true,
		},
		{
			name:   "bold markers",
			raw:    "**REMOVE:** [Go; Terraform]\n**READINESS:** NOT READY",
			remove: []string{"Go", "Terraform"},
			ready:  false,
		},
		{
			name:   "continue with reasoning mentioning already",
			raw:    "REMOVE: none\nKEEP: Kubernetes\nDECISION: CONTINUE - the user already mentioned Go but not Kubernetes",
			remove: nil,
			ready:  false,
		},
		{
			name:   "json template value",
			raw:    `{"remove": [], "decision": "READY|CONTINUE"}`,
			remove: []string{},
			ready:  false,
		},
		{
			name:   "json not ready",
			raw:    `{"remove": [], "decision": "NOT READY"}`,
			remove: []string{},
			ready:  false,
		},
		{
			name:   "ready with reasoning",
			raw:    "REMOVE: Go\nDECISION: READY - nothing left to clarify",
			remove: []string{"Go"},
			ready:  true,
		},
		{
			name:        "no markers",
			raw:         "The candidate did well.",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.raw)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errUnparsable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.remove, resp.Remove)
			assert.Equal(t, tt.ready, resp.Ready)
		})
	}
}

func TestParseMarkersReasoning(t *testing.T) {
	resp, err := Parse("REMOVE: none\nDECISION: CONTINUE - role fit not discussed")
	require.NoError(t, err)

	assert.Empty(t, resp.Remove)
	assert.False(t, resp.Ready)
	assert.True(t, strings.HasPrefix(resp.Reasoning, "role fit"))
}
