package timer

// State is the lifecycle state of a timer.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

// States lists every state in lifecycle order.
var States = []State{StateIdle, StateRunning, StatePaused, StateStopped, StateCompleted}

func (s State) String() string { return string(s) }

func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateRunning, StatePaused, StateStopped, StateCompleted:
		return true
	}
	return false
}

// IsActive reports whether the timer holds an open run (running or paused).
func (s State) IsActive() bool {
	return s == StateRunning || s == StatePaused
}

// CanStart reports whether Start is legal from s.
func (s State) CanStart() bool {
	return s == StateIdle || s == StateStopped
}

// Direction selects whether a timer counts down to zero or up from zero.
type Direction string

const (
	CountDown Direction = "countdown"
	CountUp   Direction = "countup"
)

func (d Direction) IsValid() bool {
	return d == CountDown || d == CountUp
}
