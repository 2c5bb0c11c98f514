package domain

// statusTransitions is the full transition table for ticket statuses.
// closed is terminal: no automation or API path may leave it.
var statusTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusWaiting:   {TicketStatusAssigned, TicketStatusClosed, TicketStatusCompleted, TicketStatusProgress},
	TicketStatusAssigned:  {TicketStatusWaiting, TicketStatusCompleted, TicketStatusClosed},
	TicketStatusProgress:  {TicketStatusWaiting, TicketStatusClosed, TicketStatusCompleted, TicketStatusAssigned},
	TicketStatusCompleted: {TicketStatusWaiting, TicketStatusClosed},
	TicketStatusClosed:    {},
}

// CanTransition reports whether a ticket may move from current to next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}
