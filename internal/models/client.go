package models

import "time"

const (
	ClientStatusLead     = "lead"
	ClientStatusProspect = "prospect"
	ClientStatusActive   = "active"
)

// Client is a clinic served by the sales team.
type Client struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Address     string    `json:"address,omitempty" db:"address"`
	Zone        string    `json:"zone,omitempty" db:"zone"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	Email       string    `json:"email,omitempty" db:"email"`
	ContactName string    `json:"contactName,omitempty" db:"contact_name"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

func ValidClientStatus(s string) bool {
	switch s {
	case ClientStatusLead, ClientStatusProspect, ClientStatusActive:
		return true
	}
	return false
}
