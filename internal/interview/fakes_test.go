package interview

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/spigell/cv-advisor/internal/transcript"
	"github.com/spigell/cv-advisor/internal/validation"
)

type scriptOracle struct {
	mu       sync.Mutex
	requests []ai.Request
	reply    func(n int, req ai.Request) (string, error)
}

func (o *scriptOracle) Generate(_ context.Context, req ai.Request) (string, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	n := len(o.requests)
	o.mu.Unlock()

	if o.reply == nil {
		return "Tell me more about that.", nil
	}
	return o.reply(n, req)
}

func (o *scriptOracle) prompts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.requests))
	for i, req := range o.requests {
		out[i] = req.Prompt
	}
	return out
}

type evaluation struct {
	set         gaps.Set
	recent      []transcript.Turn
	termination bool
}

type scriptValidator struct {
	calls   []evaluation
	verdict func(call evaluation) validation.Verdict
}

func (v *scriptValidator) Evaluate(_ context.Context, set gaps.Set, recent []transcript.Turn, termination bool) validation.Verdict {
	call := evaluation{set: set, recent: recent, termination: termination}
	v.calls = append(v.calls, call)
	if v.verdict == nil {
		return validation.Verdict{Remaining: set}
	}
	return v.verdict(call)
}

func (v *scriptValidator) Window() int {
	return validation.DefaultWindow
}

func (v *scriptValidator) terminationCalls() int {
	count := 0
	for _, call := range v.calls {
		if call.termination {
			count++
		}
	}
	return count
}

type scriptChannel struct {
	inputs []string
	sent   []string
}

func (c *scriptChannel) Receive(context.Context) (string, error) {
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	input := c.inputs[0]
	c.inputs = c.inputs[1:]
	return input, nil
}

func (c *scriptChannel) Send(_ context.Context, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

type streamChannel struct {
	scriptChannel
	chunks  []string
	flushes int
}

func (c *streamChannel) SendChunk(_ context.Context, chunk string) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *streamChannel) Flush(context.Context) error {
	c.flushes++
	return nil
}

type stateRecorder struct {
	states []State
}

func (r *stateRecorder) observe(s State) {
	r.states = append(r.states, s)
}

func (r *stateRecorder) contains(s State) bool {
	for _, state := range r.states {
		if state == s {
			return true
		}
	}
	return false
}

func (r *stateRecorder) last() State {
	return r.states[len(r.states)-1]
}

const wrapUpQuestion = "Is there anything else about the position you'd like to discuss?"

const finalAssessment = `{"discovered_strengths": ["ownership"], "conversation_notes": "ready to apply"}`

// replyByPrompt answers final-assessment prompts with JSON and everything else with text.
func replyByPrompt(text string) func(int, ai.Request) (string, error) {
	return func(_ int, req ai.Request) (string, error) {
		if strings.HasPrefix(req.Prompt, "Provide the final assessment") {
			return finalAssessment, nil
		}
		return text, nil
	}
}
