package contact

import "time"

// Contact is an agenda entry owned by a user.
type Contact struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	Category        string     `json:"category"`
	SpecialDate     string     `json:"specialDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Interactions    int        `json:"interactions"`
	LastInteraction *time.Time `json:"lastInteraction,omitempty"`
}
