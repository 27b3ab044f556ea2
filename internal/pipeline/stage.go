package pipeline

// Stage is a step of the processing state machine
type Stage string

const (
	StageIdle       Stage = "idle"
	StageReady      Stage = "ready"
	StageParsing    Stage = "parsing"
	StageExtracting Stage = "extracting"
	StageEstimating Stage = "estimating"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Progress returns the percentage reported when a run enters the stage
func (s Stage) Progress() int {
	switch s {
	case StageParsing:
		return 10
	case StageExtracting:
		return 50
	case StageEstimating:
		return 80
	case StageComplete:
		return 100
	default:
		return 0
	}
}

// Terminal reports whether only Reset or Select can leave the stage
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Event is sent to listeners on every stage transition
type Event struct {
	RunID    string
	Stage    Stage
	Progress int
	Message  string
}

// Listener receives pipeline events. Calls happen synchronously on the
// goroutine that caused the transition.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to a Listener
type ListenerFunc func(Event)

// OnEvent calls f(e)
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}
