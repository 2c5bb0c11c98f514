package domain

import "time"

// Department represents a high-level organizational unit owning agents.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
