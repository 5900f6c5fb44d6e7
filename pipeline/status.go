package pipeline

// Status is a node's execution state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusFailed:     {StatusInProgress},
	StatusInProgress: {StatusInProgress, StatusCompleted, StatusFailed},
	StatusCompleted:  nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Executable reports whether a node in this status may be (re)started.
func (s Status) Executable() bool {
	return s == StatusPending || s == StatusFailed
}

// CanTransition reports whether the lifecycle may move a node from one status to another.
// Structural edits bypass this table through Reset.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Reset returns the node to pending and drops its output.
func (n *Node) Reset() {
	n.Status = StatusPending
	n.Output = nil
}
