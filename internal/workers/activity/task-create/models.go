package taskcreate

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

type Input struct {
	Principal  access.Principal `json:"principal"`
	Title      string           `json:"title"`
	ClientID   string           `json:"clientId,omitempty"`
	AssigneeID string           `json:"assigneeId,omitempty"`
	DueAt      string           `json:"dueAt,omitempty"`
}

type Output struct {
	Task models.Task `json:"task"`
}
