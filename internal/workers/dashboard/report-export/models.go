package reportexport

import (
	"time"

	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal access.Principal `json:"principal"`
}

type Output struct {
	ObjectKey   string    `json:"objectKey"`
	FileName    string    `json:"fileName"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Bytes       int       `json:"bytes"`
	Month       string    `json:"month"`
	Sheets      []string  `json:"sheets"`
}
