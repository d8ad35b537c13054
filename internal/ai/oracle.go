package ai

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrOracleUnavailable marks failures to reach the text generation backend:
// network errors, timeouts, exhausted retries or empty answers.
var ErrOracleUnavailable = errors.New("oracle unavailable")

type Persona string

const (
	PersonaAnalyzer    Persona = "analyzer"
	PersonaInterviewer Persona = "interviewer"
	PersonaValidator   Persona = "validator"
	PersonaRecommender Persona = "recommender"
)

// Personas lists every persona the workflow needs.
var Personas = []Persona{PersonaAnalyzer, PersonaInterviewer, PersonaValidator, PersonaRecommender}

// Request is a single prompt sent to an oracle persona.
type Request struct {
	Persona Persona
	Prompt  string
	// Thread keeps multi-turn history. A nil thread means a one-shot call.
	Thread *Thread
	// JSON asks the backend for an application/json answer.
	JSON bool
}

// Oracle is the opaque text generation capability.
type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// StreamingOracle yields the answer as a finite sequence of text chunks.
// The sequence can be ranged over once.
type StreamingOracle interface {
	Oracle
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Ask sends the request and returns the assembled answer. When sink is set and the
// oracle can stream, every chunk is handed to sink as soon as it arrives.
func Ask(ctx context.Context, oracle Oracle, req Request, sink func(chunk string)) (string, error) {
	streaming, ok := oracle.(StreamingOracle)
	if sink == nil || !ok {
		return oracle.Generate(ctx, req)
	}

	return Collect(streaming.Stream(ctx, req), sink)
}

// Collect drains the chunk sequence, forwarding chunks to sink when it is not nil.
func Collect(chunks iter.Seq2[string, error], sink func(chunk string)) (string, error) {
	var builder strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return "", err
		}
		if chunk == "" {
			continue
		}
		if sink != nil {
			sink(chunk)
		}
		builder.WriteString(chunk)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.Join(ErrOracleUnavailable, errors.New("empty streamed response"))
	}

	return output, nil
}
