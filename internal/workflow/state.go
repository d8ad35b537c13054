package workflow

import "fmt"

type State int

const (
	Analyzing State = iota
	AwaitingQnA
	Interviewing
	Recommending
	Complete
)

func (s State) String() string {
	switch s {
	case Analyzing:
		return "analyzing"
	case AwaitingQnA:
		return "awaiting_qna"
	case Interviewing:
		return "interviewing"
	case Recommending:
		return "recommending"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

type Stage string

const (
	StageAnalysis       Stage = "analysis"
	StageInterview      Stage = "interview"
	StageRecommendation Stage = "recommendation"
)

// StageError names the stage a workflow failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Event reports a workflow transition.
type Event struct {
	State     State  `json:"-"`
	Step      string `json:"step"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called on every workflow transition.
type ProgressCallback func(event Event)
