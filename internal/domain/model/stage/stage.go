package stage

// Stage represents one phase of the request pipeline (1-8)
type Stage string

const (
	Validation  Stage = "validation"   // Stage 1
	SandboxInit Stage = "sandbox_init" // Stage 2
	Clone       Stage = "clone"        // Stage 3
	Analysis    Stage = "analysis"     // Stage 4
	Generation  Stage = "generation"   // Stage 5
	Apply       Stage = "apply"        // Stage 6
	Commit      Stage = "commit"       // Stage 7
	Publish     Stage = "publish"      // Stage 8

	// Done and Failed are the terminal states; neither appears as an event step.
	Done   Stage = "done"
	Failed Stage = "failed"
)

// Ordered lists the pipeline stages in execution order.
var Ordered = []Stage{Validation, SandboxInit, Clone, Analysis, Generation, Apply, Commit, Publish}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// ToNumber returns the 1-based position of the stage, 9 for Done and 0 otherwise
func (s Stage) ToNumber() int {
	switch s {
	case Validation:
		return 1
	case SandboxInit:
		return 2
	case Clone:
		return 3
	case Analysis:
		return 4
	case Generation:
		return 5
	case Apply:
		return 6
	case Commit:
		return 7
	case Publish:
		return 8
	case Done:
		return 9
	default:
		return 0
	}
}

// IsTerminal reports whether the state is absorbing
func (s Stage) IsTerminal() bool {
	return s == Done || s == Failed
}

// Next returns the stage that follows s, or Done after Publish
func (s Stage) Next() Stage {
	n := s.ToNumber()
	if n == 0 || n >= len(Ordered) {
		return Done
	}
	return Ordered[n]
}

// CanTransitionTo validates if transition to the next state is allowed.
// Transitions are strictly forward by one step; Failed is reachable from any non-terminal state.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == Failed {
		return true
	}
	return s.ToNumber() > 0 && s.Next() == next
}

// Range returns the progress band (start, end) reported for the stage
func (s Stage) Range() (int, int) {
	switch s {
	case Validation:
		return 5, 10
	case SandboxInit:
		return 15, 20
	case Clone:
		return 25, 30
	case Analysis:
		return 35, 40
	case Generation:
		return 45, 60
	case Apply:
		return 65, 75
	case Commit:
		return 80, 85
	case Publish:
		return 90, 95
	case Done:
		return 100, 100
	default:
		return 0, 0
	}
}

// IsValid returns true if the stage is one of the pipeline stages or a terminal state
func (s Stage) IsValid() bool {
	return s.ToNumber() > 0 || s == Failed
}
