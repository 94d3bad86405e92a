package models

import "time"

type LeadStatus string

const LeadNew LeadStatus = "new"

// Lead is a potential buyer who left contact details through the chat.
type Lead struct {
	ID               string     `json:"id" db:"id"`
	SessionID        string     `json:"session_id,omitempty" db:"session_id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone,omitempty" db:"phone"`
	PropertyInterest string     `json:"property_interest,omitempty" db:"property_interest"`
	Message          string     `json:"message,omitempty" db:"message"`
	Source           string     `json:"source" db:"source"`
	Status           LeadStatus `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
