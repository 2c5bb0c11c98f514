package domain

import "time"

// Agent models a support agent who handles tickets for one department.
//
// MaxCapacity is fixed configuration; CurrentLoad is the number of tickets
// currently bound to the agent. Available flips to false the moment the load
// reaches capacity and back to true when capacity frees up.
type Agent struct {
	ID           string
	Name         string
	Email        string
	DepartmentID string
	CurrentLoad  int
	MaxCapacity  int
	Available    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCapacity reports whether the agent can take one more ticket.
func (a *Agent) HasCapacity() bool {
	return a.CurrentLoad < a.MaxCapacity
}
