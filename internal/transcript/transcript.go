package transcript

import (
	"fmt"
	"strings"
)

type Speaker string

const (
	User    Speaker = "user"
	Advisor Speaker = "advisor"
)

// Turn is one utterance in an interview.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is an append-only record of an interview. It is owned by a single
// interview loop and is not safe for concurrent use.
type Transcript struct {
	turns []Turn
}

func New() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(speaker Speaker, text string) {
	t.turns = append(t.turns, Turn{Speaker: speaker, Text: strings.TrimSpace(text)})
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns a copy of the n most recent turns.
func (t *Transcript) Last(n int) []Turn {
	if n <= 0 {
		return nil
	}
	start := len(t.turns) - n
	if start < 0 {
		start = 0
	}
	return clone(t.turns[start:])
}

// All returns a copy of every turn.
func (t *Transcript) All() []Turn {
	return clone(t.turns)
}

// UserTurns counts the turns spoken by the user.
func (t *Transcript) UserTurns() int {
	count := 0
	for _, turn := range t.turns {
		if turn.Speaker == User {
			count++
		}
	}
	return count
}

func (t *Transcript) String() string {
	return Format(t.turns)
}

// Format renders turns one per line as "speaker: text".
func Format(turns []Turn) string {
	var builder strings.Builder
	for i, turn := range turns {
		if i > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%s: %s", turn.Speaker, turn.Text)
	}
	return builder.String()
}

func clone(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
