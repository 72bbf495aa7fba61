package session

// State is a point in the submission state machine:
//
//	Idle -> Submitting -> Submitted
//	              \-> Failed -> Idle
//
// Submitted is terminal until Reset.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
