package analysis

import "fmt"

// DefaultThreshold is the score below which an interview is required.
const DefaultThreshold = 75

// Decision is the routing verdict of the Gate.
type Decision struct {
	NeedsInterview bool
	Score          int
	MustGaps       int
	Reason         string
}

// Gate decides whether a report needs a clarifying interview.
type Gate struct {
	Threshold int
}

// NewGate falls back to DefaultThreshold for non-positive thresholds.
func NewGate(threshold int) Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Gate{Threshold: threshold}
}

// Decide has no side effects. A nil report is treated as unparsable and
// always needs an interview with a zero score.
func (g Gate) Decide(report *Report) Decision {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if report == nil {
		return Decision{NeedsInterview: true, Reason: "analysis report could not be parsed"}
	}

	decision := Decision{Score: report.PreliminaryScore, MustGaps: report.MustGaps()}
	switch {
	case decision.MustGaps > 0:
		decision.NeedsInterview = true
		decision.Reason = fmt.Sprintf("%d must-have gap(s)", decision.MustGaps)
	case decision.Score < threshold:
		decision.NeedsInterview = true
		decision.Reason = fmt.Sprintf("score %d is below threshold %d", decision.Score, threshold)
	default:
		decision.Reason = fmt.Sprintf("score %d meets threshold %d", decision.Score, threshold)
	}

	return decision
}
