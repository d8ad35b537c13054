package interview

import (
	"strings"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/tidwall/gjson"
)

// Detector recognizes a control signal in an advisor reply.
type Detector interface {
	Detect(reply string) bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(reply string) bool

func (f DetectorFunc) Detect(reply string) bool {
	return f(reply)
}

// DefaultTerminationPhrases are the wrap-up questions an advisor asks before ending.
var DefaultTerminationPhrases = []string{
	"anything else about the position",
	"anything else about your background",
	"anything else about the role",
	"anything else about your experience",
	"anything else you",
	"before we wrap up",
}

// PhraseDetector matches replies containing one of Phrases, case-insensitively.
type PhraseDetector struct {
	Phrases []string
	// RequireQuestion additionally demands a question mark in the reply.
	RequireQuestion bool
}

// NewTerminationDetector detects termination-style questions.
func NewTerminationDetector() PhraseDetector {
	return PhraseDetector{Phrases: DefaultTerminationPhrases, RequireQuestion: true}
}

func (d PhraseDetector) Detect(reply string) bool {
	if d.RequireQuestion && !strings.Contains(reply, "?") {
		return false
	}

	lower := strings.ToLower(reply)
	for _, phrase := range d.Phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// DefaultAssessmentKeys must all be present for a reply to count as a final assessment.
var DefaultAssessmentKeys = []string{"discovered_strengths", "conversation_notes"}

// JSONAssessmentDetector matches replies holding a JSON object with every key in Keys.
type JSONAssessmentDetector struct {
	Keys []string
}

func NewAssessmentDetector() JSONAssessmentDetector {
	return JSONAssessmentDetector{Keys: DefaultAssessmentKeys}
}

func (d JSONAssessmentDetector) Detect(reply string) bool {
	payload := ai.ExtractJSON(reply)
	if payload == "" || !gjson.Valid(payload) || len(d.Keys) == 0 {
		return false
	}

	for _, key := range d.Keys {
		if !gjson.Get(payload, key).Exists() {
			return false
		}
	}
	return true
}

// DefaultPriorityKeywords rank gaps for targeting.
var DefaultPriorityKeywords = []string{"networking", "communication", "teamwork", "authorization", "location"}

// GapSelector picks the gap a steering prompt should explore.
type GapSelector struct {
	Keywords []string
}

// Select returns the first gap containing a priority keyword, trying keywords
// in order, else the first gap. It reports false for an empty set.
func (s GapSelector) Select(set gaps.Set) (string, bool) {
	names := set.Snapshot()
	if len(names) == 0 {
		return "", false
	}

	for _, keyword := range s.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), keyword) {
				return name, true
			}
		}
	}

	return names[0], true
}
