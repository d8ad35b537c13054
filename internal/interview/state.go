package interview

type State int

const (
	Started State = iota
	Exchanging
	GapTargeting
	WrapUp
	TerminationCheck
	Done
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Exchanging:
		return "exchanging"
	case GapTargeting:
		return "gap_targeting"
	case WrapUp:
		return "wrap_up"
	case TerminationCheck:
		return "termination_check"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome tells how an interview reached Done.
type Outcome string

const (
	OutcomeUserEnded          Outcome = "user_ended"
	OutcomeValidated          Outcome = "validated"
	OutcomeAssessmentDetected Outcome = "assessment_detected"
	OutcomeTurnLimit          Outcome = "turn_limit"
	OutcomeChannelClosed      Outcome = "channel_closed"
)
