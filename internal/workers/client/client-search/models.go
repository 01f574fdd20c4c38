package clientsearch

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
)

type Input struct {
	Principal access.Principal  `json:"principal"`
	Text      string            `json:"text,omitempty"`
	Status    string            `json:"status,omitempty"`
	Zone      string            `json:"zone,omitempty"`
	Near      *clientindex.Near `json:"near,omitempty"`
	From      int               `json:"from,omitempty"`
	Size      int               `json:"size,omitempty"`
}

type Output struct {
	Total   int64             `json:"total"`
	Clients []clientindex.Hit `json:"clients"`
	TookMs  int64             `json:"tookMs"`
}
