package domain

import "time"

// Customer is the requester profile supplied by the customer directory.
type Customer struct {
	ID           string
	Name         string
	Email        string
	Paid         bool
	SolvedIssues int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
