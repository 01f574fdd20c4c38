package clientcreate

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

type Input struct {
	Principal   access.Principal `json:"principal"`
	Name        string           `json:"name"`
	Address     string           `json:"address,omitempty"`
	Zone        string           `json:"zone,omitempty"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
	Phone       string           `json:"phone,omitempty"`
	Email       string           `json:"email,omitempty"`
	ContactName string           `json:"contactName,omitempty"`
	Status      string           `json:"status,omitempty"`
	OwnerID     string           `json:"ownerId,omitempty"`
}

type Output struct {
	Client  models.Client `json:"client"`
	Indexed bool          `json:"indexed"`
}
