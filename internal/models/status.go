package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// allowedTransitions is the full reservation state machine. Completed and
// cancelled are terminal.
var allowedTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether a reservation may move from one status to
// another. Every mutation site checks this table instead of comparing
// strings ad hoc.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(status string) bool {
	return len(allowedTransitions[status]) == 0 && (status == StatusCancelled || status == StatusCompleted)
}

// ActiveStatuses are the statuses that hold a capacity slot for their
// (cottage, check-in day).
func ActiveStatuses() []string {
	return []string{StatusPending, StatusConfirmed, StatusCompleted}
}
